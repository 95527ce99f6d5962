// Package report produces the forecast analysis document by streaming a
// generative model's answer to the caller while assembling a copy for the
// cache.
//
// A Generator session moves through GATHERING (forecast metrics and two
// forecast horizons fetched concurrently), STREAMING (the model answer relayed
// chunk by chunk, with bounded retry on transient overload) and ends COMPLETE
// or FAILED. Only a complete, non-empty document is cached. A session whose
// caller disconnects is aborted and caches nothing.
//
// Explainer covers the short, non-streamed completions used elsewhere in the
// gateway and models the degraded answer as an explicit Fallback.
package report
