/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wrap implements component F, the composite wrapKey/unwrapKey
// protocols of spec §4.5: each chains a plain dispatch operation
// (exportKey or importKey) with a wrapping-algorithm invocation,
// falling back from the dedicated wrapKey/unwrapKey capability to the
// symmetric encrypt/decrypt capability when a module exposes only one
// of the pair.
//
// Two behaviors here correct bugs present in an earlier draft of this
// logic: unwrapKey invokes the *algorithm module's* unwrapKey/decrypt
// capability directly (never the dispatcher's own UnwrapKey/Decrypt,
// which would check the wrong usage requirement and recurse into this
// package), and the post-unwrap importKey call normalizes
// unwrappedKeyAlgorithm, not unwrapAlgorithm.
package wrap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/validate"
)

// normalizeWithFallback normalizes desc under primary; on failure it
// retries under fallback and returns the fallback's params and
// operation. If both fail, the primary's original error is surfaced
// (spec §4.5 step 1 / unwrapKey step 1).
func normalizeWithFallback(reg *registry.Registry, desc interface{},
	primary, fallback registry.Operation) (registry.Params, registry.Operation, error) {
	params, err := normalize.Normalize(primary, desc, reg)
	if err == nil {
		return params, primary, nil
	}

	primaryErr := err

	params, err = normalize.Normalize(fallback, desc, reg)
	if err != nil {
		return nil, "", primaryErr
	}

	return params, fallback, nil
}

func missingCapability(op registry.Operation, name string) error {
	return fmt.Errorf("%w: algorithm %q has no %s or equivalent capability", webcryptoerr.ErrNotSupported, name, op)
}

// WrapKey implements spec §4.5's wrapKey composite protocol.
func WrapKey(s *webcrypto.Subtle, format key.Format, k *key.Key, wrappingKey *key.Key,
	wrapAlgorithm interface{}) *webcrypto.Result {
	params, usedOp, err := normalizeWithFallback(s.Registry(), wrapAlgorithm, registry.OpWrapKey, registry.OpEncrypt)
	if err != nil {
		return webcrypto.Resolved(nil, err)
	}

	return webcrypto.Schedule(func() (interface{}, error) {
		if err := validate.AlgorithmMatch(params.AlgorithmName(), wrappingKey); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpWrapKey, wrappingKey); err != nil {
			return nil, err
		}

		if err := validate.Extractable(k); err != nil {
			return nil, err
		}

		exportResult := s.ExportKey(format, k)

		material, err := exportResult.Await(context.Background())
		if err != nil {
			return nil, err
		}

		octets, err := materializeOctets(format, material)
		if err != nil {
			return nil, err
		}

		impl, err := s.Registry().Impl(usedOp, params.AlgorithmName())
		if err != nil {
			return nil, err
		}

		var wrapped []byte

		switch {
		case impl.WrapKey != nil:
			wrapped, err = impl.WrapKey(params, wrappingKey, octets)
		case impl.Encrypt != nil:
			wrapped, err = impl.Encrypt(params, wrappingKey, octets)
		default:
			return nil, missingCapability(registry.OpWrapKey, params.AlgorithmName())
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return wrapped, nil
	})
}

// UnwrapKey implements spec §4.5's unwrapKey composite protocol.
func UnwrapKey(s *webcrypto.Subtle, format key.Format, wrappedKey []byte, unwrappingKey *key.Key,
	unwrapAlgorithm, unwrappedKeyAlgorithm interface{}, extractable bool, keyUsages []key.Usage) *webcrypto.Result {
	wrapParams, usedOp, err := normalizeWithFallback(s.Registry(), unwrapAlgorithm, registry.OpUnwrapKey, registry.OpDecrypt)
	if err != nil {
		return webcrypto.Resolved(nil, err)
	}

	// unwrappedKeyAlgorithm is normalized under importKey, separately
	// and unconditionally (spec §4.5 step 2) — not unwrapAlgorithm,
	// which only governs the wrapping transform itself.
	importParams, err := normalize.Normalize(registry.OpImportKey, unwrappedKeyAlgorithm, s.Registry())
	if err != nil {
		return webcrypto.Resolved(nil, err)
	}

	wrappedKey = cloneBytes(wrappedKey)

	return webcrypto.Schedule(func() (interface{}, error) {
		if err := validate.AlgorithmMatch(wrapParams.AlgorithmName(), unwrappingKey); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpUnwrapKey, unwrappingKey); err != nil {
			return nil, err
		}

		impl, err := s.Registry().Impl(usedOp, wrapParams.AlgorithmName())
		if err != nil {
			return nil, err
		}

		var plaintext []byte

		switch {
		case impl.UnwrapKey != nil:
			plaintext, err = impl.UnwrapKey(wrapParams, unwrappingKey, wrappedKey)
		case impl.Decrypt != nil:
			plaintext, err = impl.Decrypt(wrapParams, unwrappingKey, wrappedKey)
		default:
			return nil, missingCapability(registry.OpUnwrapKey, wrapParams.AlgorithmName())
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		material, err := dematerializeOctets(format, plaintext)
		if err != nil {
			return nil, err
		}

		if err := validate.Format(format, material); err != nil {
			return nil, err
		}

		// importParams was already normalized above (from
		// unwrappedKeyAlgorithm, never unwrapAlgorithm); invoking the
		// algorithm module directly here avoids re-normalizing an
		// already-normalized Params value through Subtle.ImportKey's
		// descriptor-shaped input.
		importImpl, err := s.Registry().Impl(registry.OpImportKey, importParams.AlgorithmName())
		if err != nil {
			return nil, err
		}

		if importImpl.ImportKey == nil {
			return nil, missingCapability(registry.OpImportKey, importParams.AlgorithmName())
		}

		k, err := importImpl.ImportKey(format, material, importParams, extractable, keyUsages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		if err := validate.ProducedKey(k); err != nil {
			return nil, err
		}

		k.Extractable = extractable
		k.Usages = append([]key.Usage(nil), keyUsages...)

		return k, nil
	})
}

// materializeOctets implements spec §4.5 step 4: raw/pkcs8/spki pass
// through unchanged; jwk is re-encoded as the UTF-8 bytes of its
// canonical JSON serialization.
func materializeOctets(format key.Format, material interface{}) ([]byte, error) {
	if format != key.FormatJWK {
		b, ok := material.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: exportKey under format %q did not return an octet buffer",
				webcryptoerr.ErrData, format)
		}

		return b, nil
	}

	jwk, ok := material.(*key.JSONWebKey)
	if !ok {
		return nil, fmt.Errorf("%w: exportKey under format jwk did not return a JSON Web Key", webcryptoerr.ErrData)
	}

	raw, err := json.Marshal(jwk)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal JWK for wrapping: %v", webcryptoerr.ErrData, err)
	}

	return raw, nil
}

// dematerializeOctets implements spec §4.5 step 5, the inverse of
// materializeOctets.
func dematerializeOctets(format key.Format, plaintext []byte) (interface{}, error) {
	if format != key.FormatJWK {
		return plaintext, nil
	}

	var jwk key.JSONWebKey
	if err := json.Unmarshal(plaintext, &jwk); err != nil {
		return nil, fmt.Errorf("%w: unwrapped octets are not a valid JWK JSON document: %v", webcryptoerr.ErrData, err)
	}

	return &jwk, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}
