/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package normalize implements component C: converting a loosely-typed
// algorithm descriptor into a validated, operation-specific parameter
// record. Normalize is pure — it touches no key material and performs
// no I/O (spec §4.2).
package normalize

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Normalize converts desc into the validated parameter record for op,
// resolving the algorithm name against reg. desc may be a bare string
// (rewritten to {name: desc} per spec §4.2 step 1), a map[string]interface{},
// or a key.Algorithm-shaped value exposing Name/Params fields via the
// Descriptor interface below.
func Normalize(op registry.Operation, desc interface{}, reg *registry.Registry) (registry.Params, error) {
	name, raw, err := toDescriptor(desc)
	if err != nil {
		return nil, err
	}

	entry, err := reg.Lookup(op, name)
	if err != nil {
		return nil, err
	}

	return buildParams(op, entry.Name, raw, reg)
}

// Descriptor is satisfied by any algorithm-descriptor-shaped value that
// is not a bare string or map[string]interface{}; key.Algorithm
// implements it.
type Descriptor interface {
	DescriptorName() string
	DescriptorParams() map[string]interface{}
}

func toDescriptor(desc interface{}) (string, map[string]interface{}, error) {
	switch d := desc.(type) {
	case string:
		return d, nil, nil
	case map[string]interface{}:
		name, ok := d["name"].(string)
		if !ok || name == "" {
			return "", nil, fmt.Errorf("%w: algorithm descriptor missing required member %q", webcryptoerr.ErrSyntax, "name")
		}

		return name, d, nil
	case Descriptor:
		name := d.DescriptorName()
		if name == "" {
			return "", nil, fmt.Errorf("%w: algorithm descriptor missing required member %q", webcryptoerr.ErrSyntax, "name")
		}

		return name, d.DescriptorParams(), nil
	case nil:
		return "", nil, fmt.Errorf("%w: algorithm descriptor is required", webcryptoerr.ErrSyntax)
	default:
		return "", nil, fmt.Errorf("%w: unrecognized algorithm descriptor shape %T", webcryptoerr.ErrSyntax, desc)
	}
}

func buildParams(op registry.Operation, canonical string, raw map[string]interface{}, reg *registry.Registry) (registry.Params, error) {
	switch strings.ToUpper(canonical) {
	case "SHA-256", "SHA-384", "SHA-512":
		return DigestParams{Name: canonical}, nil

	case "AES-GCM", "AES-KW":
		switch op {
		case registry.OpGenerateKey, registry.OpImportKey:
			length, err := optInt(raw, "length", 256)
			if err != nil {
				return nil, err
			}

			return AesKeyGenParams{Name: canonical, Length: length}, nil
		default: // encrypt, decrypt, wrapKey, unwrapKey
			iv, err := requireBytes(raw, "iv")
			if err != nil {
				return nil, err
			}

			aad, _, err := optBytes(raw, "additionalData")
			if err != nil {
				return nil, err
			}

			tagLen, err := optInt(raw, "tagLength", 128)
			if err != nil {
				return nil, err
			}

			return AesGcmParams{Name: canonical, IV: iv, AdditionalData: aad, TagLength: tagLen}, nil
		}

	case "HMAC":
		switch op {
		case registry.OpGenerateKey, registry.OpImportKey:
			hash, err := normalizeHash(raw, reg)
			if err != nil {
				return nil, err
			}

			length, err := optInt(raw, "length", 0)
			if err != nil {
				return nil, err
			}

			return HmacKeyGenParams{Name: canonical, Hash: hash, Length: length}, nil
		default: // sign, verify
			return HmacSignParams{Name: canonical}, nil
		}

	case "RSASSA-PKCS1-V1_5":
		switch op {
		case registry.OpGenerateKey, registry.OpImportKey:
			return rsaHashedKeyGenParams(canonical, raw, reg)
		default:
			return RsaSsaParams{Name: canonical}, nil
		}

	case "RSA-PSS":
		switch op {
		case registry.OpGenerateKey, registry.OpImportKey:
			return rsaHashedKeyGenParams(canonical, raw, reg)
		default:
			saltLen, err := optInt(raw, "saltLength", 0)
			if err != nil {
				return nil, err
			}

			return RsaPssParams{Name: canonical, SaltLength: saltLen}, nil
		}

	case "RSA-OAEP":
		switch op {
		case registry.OpGenerateKey, registry.OpImportKey:
			return rsaHashedKeyGenParams(canonical, raw, reg)
		default:
			label, _, err := optBytes(raw, "label")
			if err != nil {
				return nil, err
			}

			return RsaOaepParams{Name: canonical, Label: label}, nil
		}

	case "ECDSA":
		switch op {
		case registry.OpGenerateKey, registry.OpImportKey:
			curve, err := requireString(raw, "namedCurve")
			if err != nil {
				return nil, err
			}

			if !validCurve(curve) {
				return nil, fmt.Errorf("%w: unrecognized named curve %q", webcryptoerr.ErrData, curve)
			}

			return EcKeyGenParams{Name: canonical, NamedCurve: curve}, nil
		default: // sign, verify
			hash, err := normalizeHash(raw, reg)
			if err != nil {
				return nil, err
			}

			return EcdsaParams{Name: canonical, Hash: hash}, nil
		}

	case "HKDF":
		switch op {
		case registry.OpGenerateKey, registry.OpImportKey:
			length, err := optInt(raw, "length", 256)
			if err != nil {
				return nil, err
			}

			return AesKeyGenParams{Name: canonical, Length: length}, nil
		default: // deriveBits
			hash, err := normalizeHash(raw, reg)
			if err != nil {
				return nil, err
			}

			salt, _, err := optBytes(raw, "salt")
			if err != nil {
				return nil, err
			}

			info, _, err := optBytes(raw, "info")
			if err != nil {
				return nil, err
			}

			return HkdfParams{Name: canonical, Hash: hash, Salt: salt, Info: info}, nil
		}

	default:
		return nil, fmt.Errorf("%w: no parameter schema for algorithm %q", webcryptoerr.ErrNotSupported, canonical)
	}
}

func rsaHashedKeyGenParams(canonical string, raw map[string]interface{}, reg *registry.Registry) (registry.Params, error) {
	hash, err := normalizeHash(raw, reg)
	if err != nil {
		return nil, err
	}

	modLen, err := optInt(raw, "modulusLength", 2048)
	if err != nil {
		return nil, err
	}

	pubExp, ok, err := optBytes(raw, "publicExponent")
	if err != nil {
		return nil, err
	}

	if !ok {
		pubExp = []byte{0x01, 0x00, 0x01} // 65537
	}

	return RsaHashedKeyGenParams{Name: canonical, ModulusLength: modLen, PublicExponent: pubExp, Hash: hash}, nil
}

func validCurve(curve string) bool {
	switch curve {
	case "P-256", "P-384", "P-521":
		return true
	default:
		return false
	}
}

// normalizeHash recursively normalizes desc's "hash" member under the
// digest operation, per spec §4.2 step 4. A missing "hash" member is a
// SyntaxError: every algorithm that calls this helper requires one.
func normalizeHash(raw map[string]interface{}, reg *registry.Registry) (DigestParams, error) {
	hashDesc, ok := raw["hash"]
	if !ok {
		return DigestParams{}, fmt.Errorf("%w: algorithm descriptor missing required member %q", webcryptoerr.ErrSyntax, "hash")
	}

	params, err := Normalize(registry.OpDigest, hashDesc, reg)
	if err != nil {
		return DigestParams{}, err
	}

	digest, ok := params.(DigestParams)
	if !ok {
		return DigestParams{}, fmt.Errorf("%w: hash member did not normalize to a digest algorithm", webcryptoerr.ErrSyntax)
	}

	return digest, nil
}

func requireString(raw map[string]interface{}, member string) (string, error) {
	v, ok := raw[member]
	if !ok {
		return "", fmt.Errorf("%w: algorithm descriptor missing required member %q", webcryptoerr.ErrSyntax, member)
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: algorithm descriptor member %q must be a string", webcryptoerr.ErrSyntax, member)
	}

	return s, nil
}

func requireBytes(raw map[string]interface{}, member string) ([]byte, error) {
	b, ok, err := optBytes(raw, member)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: algorithm descriptor missing required member %q", webcryptoerr.ErrSyntax, member)
	}

	return b, nil
}

// optBytes accepts either a []byte or a base64url-encoded string for
// member, since callers in Go may supply either directly.
func optBytes(raw map[string]interface{}, member string) ([]byte, bool, error) {
	v, ok := raw[member]
	if !ok || v == nil {
		return nil, false, nil
	}

	switch b := v.(type) {
	case []byte:
		return b, true, nil
	case string:
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(b, "="))
		if err != nil {
			return nil, false, fmt.Errorf("%w: algorithm descriptor member %q is not valid base64url: %v",
				webcryptoerr.ErrData, member, err)
		}

		return decoded, true, nil
	default:
		return nil, false, fmt.Errorf("%w: algorithm descriptor member %q must be an octet string",
			webcryptoerr.ErrSyntax, member)
	}
}

func optInt(raw map[string]interface{}, member string, fallback int) (int, error) {
	v, ok := raw[member]
	if !ok || v == nil {
		return fallback, nil
	}

	switch n := v.(type) {
	case int:
		return validateNonNegative(n, member)
	case int64:
		return validateNonNegative(int(n), member)
	case uint32:
		return validateNonNegative(int(n), member)
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: algorithm descriptor member %q must be an integer", webcryptoerr.ErrData, member)
		}

		return validateNonNegative(int(n), member)
	default:
		return 0, fmt.Errorf("%w: algorithm descriptor member %q must be a non-negative integer",
			webcryptoerr.ErrSyntax, member)
	}
}

func validateNonNegative(n int, member string) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: algorithm descriptor member %q must be non-negative", webcryptoerr.ErrData, member)
	}

	return n, nil
}
