// SPDX-License-Identifier: MPL-2.0

package credparse

import (
	"context"
	"regexp"
)

const (
	// KindHash marks a secret that is an NTLM hash.
	KindHash Kind = "hash"
	// KindPlaintext marks a cleartext password.
	KindPlaintext Kind = "plaintext"
)

// ntlmPattern is exactly 32 hex digits.
var ntlmPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

type (
	// Kind classifies the secret of a Record.
	Kind string

	// Record is one extracted credential. Missing fields are empty strings.
	Record struct {
		Kind     Kind   `json:"kind" yaml:"kind" toml:"kind"`
		Domain   string `json:"domain" yaml:"domain" toml:"domain"`
		Username string `json:"username" yaml:"username" toml:"username"`
		Secret   string `json:"secret" yaml:"secret" toml:"secret"`
		Host     string `json:"host" yaml:"host" toml:"host"`
		SID      string `json:"sid" yaml:"sid" toml:"sid"`
	}

	// Key is the identity of a Record for deduplication.
	Key struct {
		Kind     Kind
		Domain   string
		Username string
		Secret   string
	}

	// Batch is an ordered list of records in discovery order.
	Batch []Record

	// Sink receives extracted batches, e.g. a credential store.
	Sink interface {
		Store(ctx context.Context, source string, batch Batch) error
	}
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Key returns the identity of r.
func (r Record) Key() Key {
	return Key{Kind: r.Kind, Domain: r.Domain, Username: r.Username, Secret: r.Secret}
}

// Tuple returns the fields as (kind, domain, username, secret, host, sid).
func (r Record) Tuple() [6]string {
	return [6]string{string(r.Kind), r.Domain, r.Username, r.Secret, r.Host, r.SID}
}

// IsNTLMHash reports whether s is exactly 32 hexadecimal digits.
func IsNTLMHash(s string) bool {
	return ntlmPattern.MatchString(s)
}

// classify picks the kind of an unlabeled secret.
func classify(secret string) Kind {
	if IsNTLMHash(secret) {
		return KindHash
	}
	return KindPlaintext
}
