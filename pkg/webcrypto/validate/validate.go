/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package validate implements component D: the usage, extractability,
// and format preconditions enforced at every dispatch site (spec §4.3).
package validate

import (
	"fmt"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// requiredUsage maps an operation to the usage a key must carry to
// perform it. Operations with no usage requirement (digest, importKey,
// generateKey, exportKey) are absent from the map.
var requiredUsage = map[registry.Operation]key.Usage{
	registry.OpEncrypt:    key.UsageEncrypt,
	registry.OpDecrypt:    key.UsageDecrypt,
	registry.OpSign:       key.UsageSign,
	registry.OpVerify:     key.UsageVerify,
	registry.OpWrapKey:    key.UsageWrapKey,
	registry.OpUnwrapKey:  key.UsageUnwrapKey,
	registry.OpDeriveKey:  key.UsageDeriveKey,
	registry.OpDeriveBits: key.UsageDeriveBits,
}

// AlgorithmMatch fails with ErrInvalidAccess unless the normalized
// algorithm name equals the key's own algorithm name.
func AlgorithmMatch(paramsName string, k *key.Key) error {
	if paramsName != k.Algorithm.Name {
		return fmt.Errorf("%w: algorithm %q does not match key algorithm %q",
			webcryptoerr.ErrInvalidAccess, paramsName, k.Algorithm.Name)
	}

	return nil
}

// Usage fails with ErrInvalidAccess unless op's required usage (if any)
// is present in k.Usages.
func Usage(op registry.Operation, k *key.Key) error {
	required, ok := requiredUsage[op]
	if !ok {
		return nil
	}

	if !k.HasUsage(required) {
		return fmt.Errorf("%w: key usages %v do not include required usage %q",
			webcryptoerr.ErrInvalidAccess, k.Usages, required)
	}

	return nil
}

// Extractable fails with ErrInvalidAccess unless k.Extractable is true.
// Required for exportKey and the export leg of wrapKey.
func Extractable(k *key.Key) error {
	if !k.Extractable {
		return fmt.Errorf("%w: key is not extractable", webcryptoerr.ErrInvalidAccess)
	}

	return nil
}

// Format fails with ErrType unless material's Go shape matches format:
// raw/pkcs8/spki require an octet buffer, jwk requires a structured
// *key.JSONWebKey.
func Format(format key.Format, material interface{}) error {
	switch format {
	case key.FormatRaw, key.FormatPKCS8, key.FormatSPKI:
		if _, ok := material.([]byte); !ok {
			return fmt.Errorf("%w: format %q requires an octet buffer, got %T", webcryptoerr.ErrType, format, material)
		}
	case key.FormatJWK:
		if _, ok := material.(*key.JSONWebKey); !ok {
			return fmt.Errorf("%w: format %q requires a JSON Web Key, got %T", webcryptoerr.ErrType, format, material)
		}
	default:
		return fmt.Errorf("%w: unrecognized key format %q", webcryptoerr.ErrSyntax, format)
	}

	return nil
}

// ProducedKey enforces the post-condition that a newly produced
// secret/private key must carry at least one usage.
func ProducedKey(k *key.Key) error {
	if (k.Type == key.TypeSecret || k.Type == key.TypePrivate) && len(k.Usages) == 0 {
		return fmt.Errorf("%w: produced %s key has no usages", webcryptoerr.ErrSyntax, k.Type)
	}

	return nil
}

// ProducedPair enforces that a newly produced key pair's private half
// carries at least one usage.
func ProducedPair(p *key.Pair) error {
	return ProducedKey(p.PrivateKey)
}

// Usages normalizes a caller-supplied usage token list: deduplicating
// and rejecting unknown tokens with ErrSyntax, per spec §6.
func Usages(tokens []string) ([]key.Usage, error) {
	seen := make(map[key.Usage]bool, len(tokens))

	out := make([]key.Usage, 0, len(tokens))

	for _, t := range tokens {
		u := key.Usage(t)
		if !key.IsValidUsage(u) {
			return nil, fmt.Errorf("%w: unrecognized usage token %q", webcryptoerr.ErrSyntax, t)
		}

		if seen[u] {
			continue
		}

		seen[u] = true

		out = append(out, u)
	}

	return out, nil
}
