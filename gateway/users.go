package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/infergate/auth"
	"github.com/jonwraymond/infergate/users"
)

// UserDirectory is the subset of users.Directory the gateway mutates.
type UserDirectory interface {
	Create(ctx context.Context, u users.User) (users.User, error)
	Update(ctx context.Context, username string, upd users.Update) (users.User, error)
	Delete(ctx context.Context, username string) error
}

var (
	ownerOnly   auth.Authorizer = auth.OwnerAuthorizer{}
	serviceOnly auth.Authorizer = auth.ServiceOnlyAuthorizer{}
)

// authorize checks the caller against authz before any record is touched.
func authorize(r *http.Request, authz auth.Authorizer, action, owner string) error {
	id, _ := auth.IdentityFromContext(r.Context())
	return authz.Authorize(r.Context(), &auth.AuthzRequest{
		Subject:  id,
		Resource: "users/" + owner,
		Action:   action,
		Owner:    owner,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return mismatch("", "request body must be a valid JSON object")
	}
	return nil
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Users == nil {
		return errNotConfigured
	}
	if err := authorize(r, serviceOnly, "create", ""); err != nil {
		return err
	}
	var u users.User
	if err := decodeJSON(w, r, s.opts.MaxUploadBytes, &u); err != nil {
		return err
	}
	if u.Username == "" {
		return missing("username")
	}
	if err := u.Validate(); err != nil {
		return err
	}
	created, err := s.deps.Users.Create(r.Context(), u)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, created)
	return nil
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Users == nil {
		return errNotConfigured
	}
	username := chi.URLParam(r, "username")
	if err := authorize(r, ownerOnly, "update", username); err != nil {
		return err
	}
	var upd users.Update
	if err := decodeJSON(w, r, s.opts.MaxUploadBytes, &upd); err != nil {
		return err
	}
	if upd.Empty() {
		return missing("email or full_name")
	}
	updated, err := s.deps.Users.Update(r.Context(), username, upd)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, updated)
	return nil
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Users == nil {
		return errNotConfigured
	}
	username := chi.URLParam(r, "username")
	if err := authorize(r, ownerOnly, "delete", username); err != nil {
		return err
	}
	if err := s.deps.Users.Delete(r.Context(), username); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
