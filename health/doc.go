// Package health reports the status of the gateway and the collaborators it
// depends on: the shared cache, the user directory, and the inference
// providers.
//
// A Checker reports Healthy, Degraded or Unhealthy. Collaborators the gateway
// can run without (cache, providers) should degrade rather than fail, since
// requests still complete by recomputation or surface upstream errors
// directly.
//
//	agg := health.NewAggregator()
//	agg.Register("cache", health.NewPingChecker("cache", redisCache.Ping, health.StatusDegraded))
//	agg.Register("users", health.NewPingChecker("users", db.PingContext, health.StatusUnhealthy))
//	health.Register(router, agg) // chi router
package health
