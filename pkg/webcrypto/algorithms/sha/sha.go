/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sha registers the SHA-256/SHA-384/SHA-512 digest algorithms.
// These are pure hash functions with no key material, so there is no
// tink primitive or other pack dependency to reach for: crypto/sha256
// and crypto/sha512 are the standard, idiomatic choice (see DESIGN.md
// for the stdlib justification).
package sha

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Names of the three digest algorithms this package registers.
const (
	Name256 = "SHA-256"
	Name384 = "SHA-384"
	Name512 = "SHA-512"
)

func init() {
	Register(registry.Default())
}

// Register adds the SHA-256/384/512 digest entries to reg.
func Register(reg *registry.Registry) {
	reg.Register(registry.OpDigest, Name256, registry.Entry{Impl: registry.Module{Digest: digest256}})
	reg.Register(registry.OpDigest, Name384, registry.Entry{Impl: registry.Module{Digest: digest384}})
	reg.Register(registry.OpDigest, Name512, registry.Entry{Impl: registry.Module{Digest: digest512}})
}

func digest256(_ registry.Params, data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)

	return sum[:], nil
}

func digest384(_ registry.Params, data []byte) ([]byte, error) {
	sum := sha512.Sum384(data)

	return sum[:], nil
}

func digest512(_ registry.Params, data []byte) ([]byte, error) {
	sum := sha512.Sum512(data)

	return sum[:], nil
}
