package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOwnerAuthorizer(t *testing.T) {
	future := time.Now().Add(time.Hour)
	alice := &Identity{Kind: KindUser, Principal: "alice", ExpiresAt: future}
	bob := &Identity{Kind: KindUser, Principal: "bob", ExpiresAt: future}
	service := &Identity{Kind: KindService, Principal: ServiceSubject, ExpiresAt: future}
	stale := &Identity{Kind: KindUser, Principal: "alice", ExpiresAt: time.Now().Add(-time.Minute)}

	tests := []struct {
		name    string
		subject *Identity
		owner   string
		wantErr bool
	}{
		{name: "owner updates self", subject: alice, owner: "alice"},
		{name: "service updates anyone", subject: service, owner: "alice"},
		{name: "other user denied", subject: bob, owner: "alice", wantErr: true},
		{name: "nil subject denied", subject: nil, owner: "alice", wantErr: true},
		{name: "expired subject denied", subject: stale, owner: "alice", wantErr: true},
		{name: "empty owner denied", subject: alice, owner: "", wantErr: true},
	}

	var authz OwnerAuthorizer
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Authorize(context.Background(), &AuthzRequest{
				Subject:  tt.subject,
				Resource: "users/" + tt.owner,
				Action:   "update",
				Owner:    tt.owner,
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrForbidden) {
				t.Errorf("errors.Is(err, ErrForbidden) = false for %v", err)
			}
		})
	}
}

func TestServiceOnlyAuthorizer(t *testing.T) {
	var authz ServiceOnlyAuthorizer
	ctx := context.Background()

	if err := authz.Authorize(ctx, &AuthzRequest{Subject: &Identity{Kind: KindService, Principal: ServiceSubject}}); err != nil {
		t.Errorf("service principal denied: %v", err)
	}
	err := authz.Authorize(ctx, &AuthzRequest{Subject: &Identity{Kind: KindUser, Principal: "alice"}, Action: "create"})
	var azErr *AuthzError
	if !errors.As(err, &azErr) {
		t.Fatalf("Authorize() error = %v, want *AuthzError", err)
	}
	if azErr.Subject != "alice" {
		t.Errorf("Subject = %q, want alice", azErr.Subject)
	}
	if err := authz.Authorize(ctx, &AuthzRequest{}); err == nil {
		t.Error("nil subject should be denied")
	}
}

func TestAuthzError_Unwrap(t *testing.T) {
	err := &AuthzError{Subject: "alice", Reason: "identity expired", Cause: ErrTokenExpired}
	if !errors.Is(err, ErrTokenExpired) {
		t.Error("errors.Is(err, ErrTokenExpired) = false")
	}
	if !errors.Is(err, ErrForbidden) {
		t.Error("errors.Is(err, ErrForbidden) = false")
	}
}

func TestAuthorizerFunc(t *testing.T) {
	called := false
	f := AuthorizerFunc(func(_ context.Context, _ *AuthzRequest) error {
		called = true
		return nil
	})
	if err := f.Authorize(context.Background(), &AuthzRequest{}); err != nil || !called {
		t.Errorf("Authorize() = %v, called = %v", err, called)
	}
}
