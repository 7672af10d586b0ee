/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package credentials supplies git transport auth for fetch and push. A
// Provider is a fixed capability: it receives the remote URL but hands back
// the same credentials regardless of what is asked for.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

// tokenUsername is sent as the basic auth user when authenticating with an
// access token; hosting services ignore it.
const tokenUsername = "unused-when-using-access-tokens"

// Provider resolves the auth method used for a remote.
type Provider interface {
	AuthFor(ctx context.Context, url string) (transport.AuthMethod, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context, url string) (transport.AuthMethod, error)

// AuthFor implements Provider.
func (f ProviderFunc) AuthFor(ctx context.Context, url string) (transport.AuthMethod, error) {
	return f(ctx, url)
}

type static struct {
	auth *githttp.BasicAuth
}

// Static returns a Provider that always answers with the given login and
// password.
func Static(login, password string) Provider {
	return &static{auth: &githttp.BasicAuth{Username: login, Password: password}}
}

func (s *static) AuthFor(context.Context, string) (transport.AuthMethod, error) {
	return s.auth, nil
}

type tokenSource struct {
	ts oauth2.TokenSource
}

// FromTokenSource returns a Provider that mints basic auth from the current
// access token of ts on every call.
func FromTokenSource(ts oauth2.TokenSource) (Provider, error) {
	if ts == nil {
		return nil, errors.New("token source cannot be nil")
	}
	return &tokenSource{ts: ts}, nil
}

func (t *tokenSource) AuthFor(context.Context, string) (transport.AuthMethod, error) {
	token, err := t.ts.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return &githttp.BasicAuth{
		Username: tokenUsername,
		Password: token.AccessToken,
	}, nil
}

type none struct{}

// None returns a Provider that supplies no auth, for file and anonymous
// remotes.
func None() Provider {
	return none{}
}

func (none) AuthFor(context.Context, string) (transport.AuthMethod, error) {
	return nil, nil
}
