package health

import (
	"context"
	"fmt"
)

// PingFunc reports reachability of a collaborator.
type PingFunc func(ctx context.Context) error

// PingChecker turns a ping into a Checker. A failed ping yields onFailure,
// which should be StatusDegraded for collaborators the gateway can run
// without.
type PingChecker struct {
	name      string
	ping      PingFunc
	onFailure Status
}

// NewPingChecker creates a PingChecker.
func NewPingChecker(name string, ping PingFunc, onFailure Status) *PingChecker {
	return &PingChecker{name: name, ping: ping, onFailure: onFailure}
}

// Name returns the checker name.
func (p *PingChecker) Name() string {
	return p.name
}

// Check pings the collaborator.
func (p *PingChecker) Check(ctx context.Context) Result {
	if err := p.ping(ctx); err != nil {
		msg := fmt.Sprintf("%s unreachable", p.name)
		if p.onFailure == StatusDegraded {
			return Degraded(msg, err)
		}
		return Unhealthy(msg, fmt.Errorf("%w: %v", ErrCheckFailed, err))
	}
	return Healthy(fmt.Sprintf("%s reachable", p.name))
}
