package auth

import (
	"context"
	"fmt"
)

// Authorizer decides whether an authenticated identity may perform an
// action. It returns nil to allow and an error matching ErrForbidden to deny.
type Authorizer interface {
	Authorize(ctx context.Context, req *AuthzRequest) error
}

// AuthzRequest describes one access decision.
type AuthzRequest struct {
	Subject  *Identity
	Resource string // e.g. "users/alice"
	Action   string // e.g. "update"
	Owner    string // identity the resource is scoped to
}

// AuthzError is a denied access decision. It matches ErrForbidden.
type AuthzError struct {
	Subject  string
	Resource string
	Action   string
	Reason   string
	Cause    error
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %s %s denied for %q: %s", e.Action, e.Resource, e.Subject, e.Reason)
}

func (e *AuthzError) Unwrap() error { return e.Cause }

func (e *AuthzError) Is(target error) bool { return target == ErrForbidden }

func deny(req *AuthzRequest, reason string, cause error) *AuthzError {
	e := &AuthzError{Resource: req.Resource, Action: req.Action, Reason: reason, Cause: cause}
	if req.Subject != nil {
		e.Subject = req.Subject.Principal
	}
	return e
}

// OwnerAuthorizer lets the service principal act on any record and a user
// act only on the record scoped to its own identity.
type OwnerAuthorizer struct{}

// Authorize applies the owner rule.
func (OwnerAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	switch {
	case req.Subject == nil:
		return deny(req, "no identity", nil)
	case req.Subject.IsExpired():
		return deny(req, "identity expired", ErrTokenExpired)
	case req.Subject.IsService(), req.Subject.Owns(req.Owner):
		return nil
	}
	return deny(req, "owned by another identity", nil)
}

// ServiceOnlyAuthorizer admits only the internal service principal.
type ServiceOnlyAuthorizer struct{}

// Authorize denies every user identity.
func (ServiceOnlyAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject.IsService() {
		return nil
	}
	return deny(req, "service principal required", nil)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls f(ctx, req).
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

var (
	_ Authorizer = OwnerAuthorizer{}
	_ Authorizer = ServiceOnlyAuthorizer{}
	_ Authorizer = AuthorizerFunc(nil)
)
