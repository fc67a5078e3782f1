/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webcrypto implements component E, the operation dispatcher:
// the public surface that orchestrates normalize -> validate -> invoke
// for every operation in the vocabulary, following the
// copy-normalize-schedule-validate-invoke-post-validate-resolve
// skeleton of spec §4.4.
package webcrypto

import (
	"fmt"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/internal/webcryptolog"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/validate"
)

// Subtle is the default Crypto dispatch core implementation, named
// after the browser SubtleCrypto interface this façade mirrors. It
// holds no cryptographic state of its own — every primitive lives in
// an algorithm module resolved through reg.
type Subtle struct {
	reg *registry.Registry
	log webcryptolog.Logger
}

// New creates a Subtle dispatcher bound to reg. A nil reg defaults to
// registry.Default(), the process-wide registry algorithm modules
// populate from their own init() functions.
func New(reg *registry.Registry, log webcryptolog.Logger) *Subtle {
	if reg == nil {
		reg = registry.Default()
	}

	if log == nil {
		log = webcryptolog.NopLogger{}
	}

	return &Subtle{reg: reg, log: log}
}

// Registry exposes the bound registry so package wrap can perform the
// extra lookups its composite protocols need beyond a single
// normalize+validate+invoke dispatch.
func (s *Subtle) Registry() *registry.Registry {
	return s.reg
}

// resolveImpl normalizes desc under op and resolves the algorithm
// module registered for the result's canonical name — the
// normalize-then-registry-lookup half of every dispatch, run
// synchronously before scheduling (spec §4.4 steps 1-2).
func (s *Subtle) resolveImpl(op registry.Operation, desc interface{}) (registry.Params, registry.Module, error) {
	params, err := normalize.Normalize(op, desc, s.reg)
	if err != nil {
		return nil, registry.Module{}, err
	}

	impl, err := s.reg.Impl(op, params.AlgorithmName())
	if err != nil {
		return nil, registry.Module{}, err
	}

	return params, impl, nil
}

func missingCapability(op registry.Operation, name string) error {
	return fmt.Errorf("%w: algorithm %q has no %s capability", webcryptoerr.ErrNotSupported, name, op)
}

// warnNormalizeFailed logs and wraps the rejection every dispatch
// method returns when resolveImpl fails before scheduling.
func (s *Subtle) warnNormalizeFailed(op registry.Operation, err error) *Result {
	s.log.Warn(fmt.Sprintf("%s: normalize failed", op), "error", err)
	return Resolved(nil, err)
}

// scheduleLogged runs fn on the deferred-result worker and logs the
// outcome uniformly: Warn with the rejecting error on any failure
// (validate or invoke stage alike), Debug on success. Every Subtle
// method funnels its scheduled work through this so logging coverage
// never depends on which stage of an operation fails.
func (s *Subtle) scheduleLogged(op registry.Operation, algorithmName string, fn func() (interface{}, error)) *Result {
	return Schedule(func() (interface{}, error) {
		v, err := fn()
		if err != nil {
			s.log.Warn(fmt.Sprintf("%s failed", op), "algorithm", algorithmName, "error", err)
			return nil, err
		}

		s.log.Debug(fmt.Sprintf("%s ok", op), "algorithm", algorithmName)

		return v, nil
	})
}

// Encrypt dispatches the encrypt operation.
func (s *Subtle) Encrypt(algorithm interface{}, k *key.Key, data []byte) *Result {
	data = cloneBytes(data)

	params, impl, err := s.resolveImpl(registry.OpEncrypt, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpEncrypt, err)
	}

	return s.scheduleLogged(registry.OpEncrypt, params.AlgorithmName(), func() (interface{}, error) {
		if err := validate.AlgorithmMatch(params.AlgorithmName(), k); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpEncrypt, k); err != nil {
			return nil, err
		}

		if impl.Encrypt == nil {
			return nil, missingCapability(registry.OpEncrypt, params.AlgorithmName())
		}

		ct, err := impl.Encrypt(params, k, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return ct, nil
	})
}

// Decrypt dispatches the decrypt operation.
func (s *Subtle) Decrypt(algorithm interface{}, k *key.Key, data []byte) *Result {
	data = cloneBytes(data)

	params, impl, err := s.resolveImpl(registry.OpDecrypt, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpDecrypt, err)
	}

	return s.scheduleLogged(registry.OpDecrypt, params.AlgorithmName(), func() (interface{}, error) {
		if err := validate.AlgorithmMatch(params.AlgorithmName(), k); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpDecrypt, k); err != nil {
			return nil, err
		}

		if impl.Decrypt == nil {
			return nil, missingCapability(registry.OpDecrypt, params.AlgorithmName())
		}

		pt, err := impl.Decrypt(params, k, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return pt, nil
	})
}

// Sign dispatches the sign operation.
func (s *Subtle) Sign(algorithm interface{}, k *key.Key, data []byte) *Result {
	data = cloneBytes(data)

	params, impl, err := s.resolveImpl(registry.OpSign, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpSign, err)
	}

	return s.scheduleLogged(registry.OpSign, params.AlgorithmName(), func() (interface{}, error) {
		if err := validate.AlgorithmMatch(params.AlgorithmName(), k); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpSign, k); err != nil {
			return nil, err
		}

		if impl.Sign == nil {
			return nil, missingCapability(registry.OpSign, params.AlgorithmName())
		}

		sig, err := impl.Sign(k, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return sig, nil
	})
}

// Verify dispatches the verify operation. An invalid signature resolves
// false; an algorithm-internal failure rejects with ErrOperation.
func (s *Subtle) Verify(algorithm interface{}, k *key.Key, sig, data []byte) *Result {
	sig = cloneBytes(sig)
	data = cloneBytes(data)

	params, impl, err := s.resolveImpl(registry.OpVerify, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpVerify, err)
	}

	return s.scheduleLogged(registry.OpVerify, params.AlgorithmName(), func() (interface{}, error) {
		if err := validate.AlgorithmMatch(params.AlgorithmName(), k); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpVerify, k); err != nil {
			return nil, err
		}

		if impl.Verify == nil {
			return nil, missingCapability(registry.OpVerify, params.AlgorithmName())
		}

		ok, err := impl.Verify(k, sig, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return ok, nil
	})
}

// Digest dispatches the digest operation. It requires no key.
func (s *Subtle) Digest(algorithm interface{}, data []byte) *Result {
	data = cloneBytes(data)

	params, impl, err := s.resolveImpl(registry.OpDigest, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpDigest, err)
	}

	return s.scheduleLogged(registry.OpDigest, params.AlgorithmName(), func() (interface{}, error) {
		if impl.Digest == nil {
			return nil, missingCapability(registry.OpDigest, params.AlgorithmName())
		}

		h, err := impl.Digest(params, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return h, nil
	})
}

// GenerateKey dispatches the generateKey operation, returning either a
// *key.Key or a *key.Pair.
func (s *Subtle) GenerateKey(algorithm interface{}, extractable bool, usages []key.Usage) *Result {
	params, impl, err := s.resolveImpl(registry.OpGenerateKey, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpGenerateKey, err)
	}

	return s.scheduleLogged(registry.OpGenerateKey, params.AlgorithmName(), func() (interface{}, error) {
		if impl.GenerateKey == nil {
			return nil, missingCapability(registry.OpGenerateKey, params.AlgorithmName())
		}

		produced, err := impl.GenerateKey(params, extractable, usages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		if err := postValidateProduced(produced); err != nil {
			return nil, err
		}

		return produced, nil
	})
}

// ImportKey dispatches the importKey operation.
func (s *Subtle) ImportKey(format key.Format, material interface{}, algorithm interface{},
	extractable bool, usages []key.Usage) *Result {
	material = cloneMaterial(format, material)

	params, impl, err := s.resolveImpl(registry.OpImportKey, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpImportKey, err)
	}

	return s.scheduleLogged(registry.OpImportKey, params.AlgorithmName(), func() (interface{}, error) {
		if err := validate.Format(format, material); err != nil {
			return nil, err
		}

		if impl.ImportKey == nil {
			return nil, missingCapability(registry.OpImportKey, params.AlgorithmName())
		}

		k, err := impl.ImportKey(format, material, params, extractable, usages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		if err := validate.ProducedKey(k); err != nil {
			return nil, err
		}

		return k, nil
	})
}

// ExportKey dispatches the exportKey operation. Per spec §4.4 it
// invokes exportKey on the key's own algorithm, not a caller-supplied
// descriptor — there is nothing for the caller to normalize.
func (s *Subtle) ExportKey(format key.Format, k *key.Key) *Result {
	return s.scheduleLogged(registry.OpExportKey, k.Algorithm.Name, func() (interface{}, error) {
		if err := validate.Extractable(k); err != nil {
			return nil, err
		}

		impl, err := s.reg.Impl(registry.OpExportKey, k.Algorithm.Name)
		if err != nil {
			return nil, err
		}

		if impl.ExportKey == nil {
			return nil, missingCapability(registry.OpExportKey, k.Algorithm.Name)
		}

		material, err := impl.ExportKey(format, k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return material, nil
	})
}

// DeriveBits dispatches the deriveBits operation.
func (s *Subtle) DeriveBits(algorithm interface{}, baseKey *key.Key, length int) *Result {
	params, impl, err := s.resolveImpl(registry.OpDeriveBits, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpDeriveBits, err)
	}

	return s.scheduleLogged(registry.OpDeriveBits, params.AlgorithmName(), func() (interface{}, error) {
		if err := validate.AlgorithmMatch(params.AlgorithmName(), baseKey); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpDeriveBits, baseKey); err != nil {
			return nil, err
		}

		if impl.DeriveBits == nil {
			return nil, missingCapability(registry.OpDeriveBits, params.AlgorithmName())
		}

		bits, err := impl.DeriveBits(params, baseKey, length)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		return bits, nil
	})
}

// DeriveKey dispatches the deriveKey operation: normalize+validate+
// invoke deriveBits on baseKey, then feed the resulting bits through
// importKey under derivedKeyType (spec §4.4).
func (s *Subtle) DeriveKey(algorithm interface{}, baseKey *key.Key, derivedKeyType interface{},
	extractable bool, usages []key.Usage) *Result {
	deriveParams, deriveImpl, err := s.resolveImpl(registry.OpDeriveBits, algorithm)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpDeriveKey, err)
	}

	importParams, importImpl, err := s.resolveImpl(registry.OpImportKey, derivedKeyType)
	if err != nil {
		return s.warnNormalizeFailed(registry.OpDeriveKey, err)
	}

	return s.scheduleLogged(registry.OpDeriveKey, deriveParams.AlgorithmName(), func() (interface{}, error) {
		if err := validate.AlgorithmMatch(deriveParams.AlgorithmName(), baseKey); err != nil {
			return nil, err
		}

		if err := validate.Usage(registry.OpDeriveKey, baseKey); err != nil {
			return nil, err
		}

		if deriveImpl.DeriveBits == nil {
			return nil, missingCapability(registry.OpDeriveBits, deriveParams.AlgorithmName())
		}

		length, err := keyLength(importImpl, importParams)
		if err != nil {
			return nil, err
		}

		bits, err := deriveImpl.DeriveBits(deriveParams, baseKey, length)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		if importImpl.ImportKey == nil {
			return nil, missingCapability(registry.OpImportKey, importParams.AlgorithmName())
		}

		derived, err := importImpl.ImportKey(key.FormatRaw, bits, importParams, extractable, usages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", webcryptoerr.ErrOperation, err)
		}

		if err := validate.ProducedKey(derived); err != nil {
			return nil, err
		}

		return derived, nil
	})
}

func postValidateProduced(produced interface{}) error {
	switch v := produced.(type) {
	case *key.Key:
		return validate.ProducedKey(v)
	case *key.Pair:
		return validate.ProducedPair(v)
	default:
		return fmt.Errorf("%w: generateKey returned unrecognized type %T", webcryptoerr.ErrOperation, produced)
	}
}

func cloneMaterial(format key.Format, material interface{}) interface{} {
	if format == key.FormatJWK {
		return material
	}

	b, ok := material.([]byte)
	if !ok {
		return material
	}

	return cloneBytes(b)
}

// keyLength resolves the derived key's bit length via the registry's
// getKeyLength capability (spec §4.1's `getKeyLength?` member), falling
// back to a closed type switch over the parameter record for modules
// that haven't wired the capability.
func keyLength(impl registry.Module, p registry.Params) (int, error) {
	if impl.GetKeyLength != nil {
		return impl.GetKeyLength(p)
	}

	switch v := p.(type) {
	case normalize.AesKeyGenParams:
		return v.Length, nil
	case normalize.HmacKeyGenParams:
		return v.Length, nil
	default:
		return 0, fmt.Errorf("%w: cannot infer derived key length for algorithm %q",
			webcryptoerr.ErrNotSupported, p.AlgorithmName())
	}
}
