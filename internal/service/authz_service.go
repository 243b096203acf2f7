package service

import (
	"errors"

	"app/internal/model"
)

// ErrUnauthorized is returned by every admin entry point when the caller is
// not on the allow-list. It is the only error that aborts a request before
// any work is attempted.
var ErrUnauthorized = errors.New("unauthorized")

// AuthorizationGate decides whether identity claims may use the admin
// surface. Pure and synchronous; every aggregation, deletion, and populate
// entry point consults it before doing any work.
type AuthorizationGate interface {
	IsAuthorized(claims model.IdentityClaims) bool
}

type allowListGate struct {
	allowed map[string]struct{}
}

// NewAllowListGate builds a gate from the configured set of privileged
// email addresses.
func NewAllowListGate(emails []string) AuthorizationGate {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		allowed[e] = struct{}{}
	}
	return &allowListGate{allowed: allowed}
}

func (g *allowListGate) IsAuthorized(claims model.IdentityClaims) bool {
	_, ok := g.allowed[claims.Email]
	return ok
}
