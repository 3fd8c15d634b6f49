// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package ws

import (
	"net/http"
	"strings"
)

// originChecker validates the Origin header against a configured allow-list.
// An empty list rejects everything (fail secure). "*" allows all origins and
// "http://localhost:*" style entries match any port.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header; only browsers
			// need cross-origin protection.
			return true
		}

		for _, a := range allowed {
			a = strings.TrimSpace(a)
			if a == origin || a == "*" {
				return true
			}
			if strings.HasSuffix(a, ":*") {
				prefix := strings.TrimSuffix(a, "*")
				if strings.HasPrefix(origin, prefix) {
					remainder := strings.TrimPrefix(origin, prefix)
					if len(remainder) > 0 && isNumeric(remainder) {
						return true
					}
				}
			}
		}
		return false
	}
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
