/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package normalize

// Every Params implementation below satisfies registry.Params by
// exposing AlgorithmName(); each is the validated, typed form of one
// operation's algorithm descriptor (spec §4.2).

// DigestParams is the parameter record for the digest operation, and
// the nested record any hash-bearing algorithm (HMAC keygen, RSASSA
// keygen, ECDSA sign/verify, HKDF) carries under its own Hash member.
type DigestParams struct {
	Name string
}

// AlgorithmName implements registry.Params.
func (p DigestParams) AlgorithmName() string { return p.Name }

// AesGcmParams is the parameter record for AES-GCM encrypt/decrypt and
// for the AES-GCM-backed wrapKey/unwrapKey entries.
type AesGcmParams struct {
	Name           string
	IV             []byte
	AdditionalData []byte
	TagLength      int // bits; Normalize fills 128 when the member is absent
}

func (p AesGcmParams) AlgorithmName() string { return p.Name }

// AesKeyGenParams is the parameter record for AES-* generateKey and
// importKey.
type AesKeyGenParams struct {
	Name   string
	Length int // bits
}

func (p AesKeyGenParams) AlgorithmName() string { return p.Name }

// HmacKeyGenParams is the parameter record for HMAC generateKey and
// importKey.
type HmacKeyGenParams struct {
	Name   string
	Hash   DigestParams
	Length int // bits; 0 means "use the hash's output size"
}

func (p HmacKeyGenParams) AlgorithmName() string { return p.Name }

// HmacSignParams is the parameter record for HMAC sign/verify. HMAC's
// hash is a property of the key's own algorithm, not of the sign call,
// so this record carries only the name.
type HmacSignParams struct {
	Name string
}

func (p HmacSignParams) AlgorithmName() string { return p.Name }

// RsaHashedKeyGenParams is the parameter record for RSASSA-PKCS1-v1_5,
// RSA-PSS, and RSA-OAEP generateKey/importKey.
type RsaHashedKeyGenParams struct {
	Name           string
	ModulusLength  int
	PublicExponent []byte
	Hash           DigestParams
}

func (p RsaHashedKeyGenParams) AlgorithmName() string { return p.Name }

// RsaSsaParams is the parameter record for RSASSA-PKCS1-v1_5 sign/verify.
type RsaSsaParams struct {
	Name string
}

func (p RsaSsaParams) AlgorithmName() string { return p.Name }

// RsaPssParams is the parameter record for RSA-PSS sign/verify.
type RsaPssParams struct {
	Name       string
	SaltLength int // bytes
}

func (p RsaPssParams) AlgorithmName() string { return p.Name }

// RsaOaepParams is the parameter record for RSA-OAEP encrypt/decrypt
// and the RSA-OAEP wrapKey/unwrapKey entries.
type RsaOaepParams struct {
	Name  string
	Label []byte
}

func (p RsaOaepParams) AlgorithmName() string { return p.Name }

// EcKeyGenParams is the parameter record for ECDSA generateKey/importKey.
type EcKeyGenParams struct {
	Name       string
	NamedCurve string
}

func (p EcKeyGenParams) AlgorithmName() string { return p.Name }

// EcdsaParams is the parameter record for ECDSA sign/verify.
type EcdsaParams struct {
	Name string
	Hash DigestParams
}

func (p EcdsaParams) AlgorithmName() string { return p.Name }

// HkdfParams is the parameter record for HKDF deriveBits/deriveKey.
type HkdfParams struct {
	Name string
	Hash DigestParams
	Salt []byte
	Info []byte
}

func (p HkdfParams) AlgorithmName() string { return p.Name }
