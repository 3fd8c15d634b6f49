// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package auth verifies presented credentials and maps them to identities.
// The gateway calls Verify once per connection attempt; a failure rejects
// the transport before any session operation is possible.
package auth

import (
	"crypto/subtle"
	"errors"
	"log"
)

var ErrInvalidCredential = errors.New("invalid credential")

// Verifier turns a presented credential into an identity or a failure.
type Verifier struct {
	// tokens maps identity -> credential.
	tokens map[string]string
}

// NewVerifier creates a verifier over the configured identity/token pairs.
// With no pairs configured the verifier rejects everything (fail-closed).
func NewVerifier(tokens map[string]string) *Verifier {
	if len(tokens) == 0 {
		log.Printf("[auth] WARNING: no identities configured, all connections will be rejected (fail-closed)")
	}
	return &Verifier{tokens: tokens}
}

// Verify returns the identity owning the credential, or ErrInvalidCredential.
func (v *Verifier) Verify(credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidCredential
	}
	for identity, token := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(credential)) == 1 {
			return identity, nil
		}
	}
	return "", ErrInvalidCredential
}
