package observe

// Operation describes a gateway operation for telemetry purposes.
type Operation struct {
	Name  string // operation name, e.g. "classify" (required)
	Group string // route group, e.g. "obj-det" (optional)
	Route string // route pattern, e.g. "/obj-det/predictImage" (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: gateway.<group>.<name> or gateway.<name>
func (o Operation) SpanName() string {
	if o.Group != "" {
		return "gateway." + o.Group + "." + o.Name
	}
	return "gateway." + o.Name
}

// ID returns the qualified operation identifier.
func (o Operation) ID() string {
	if o.Group != "" {
		return o.Group + "." + o.Name
	}
	return o.Name
}

// Validate reports ErrMissingOperationName for an unnamed operation.
func (o Operation) Validate() error {
	if o.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}
