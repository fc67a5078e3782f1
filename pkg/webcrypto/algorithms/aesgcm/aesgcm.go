/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package aesgcm registers the AES-GCM algorithm module: encrypt,
// decrypt, generateKey, importKey, exportKey, wrapKey, and unwrapKey
// over raw AES key material. The AEAD itself is built on stdlib
// crypto/aes + cipher.NewGCMWithTagSize rather than
// pkg/crypto/tinkcrypto/crypto.go's aead/subtle.AESGCM: tink's
// subtle primitive always derives its own random nonce and prepends
// it to the ciphertext (see tinkcrypto's WrapKey, which extracts that
// self-generated nonce back out of the blob after the fact) and has
// no caller-nonce entry point, whereas the caller-supplied IV here
// must be the actual GCM nonce, and a caller-requested tag length
// must actually change the authentication tag size.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Name is the canonical algorithm name this module registers.
const Name = "AES-GCM"

func init() {
	Register(registry.Default())
}

// Register adds the AES-GCM entries to reg, under encrypt, decrypt,
// generateKey, importKey, exportKey, wrapKey, and unwrapKey.
func Register(reg *registry.Registry) {
	impl := registry.Module{
		Encrypt:      encrypt,
		Decrypt:      decrypt,
		GenerateKey:  generateKey,
		ImportKey:    importKey,
		ExportKey:    exportKey,
		WrapKey:      wrapKey,
		UnwrapKey:    unwrapKey,
		GetKeyLength: getKeyLength,
	}

	for _, op := range []registry.Operation{
		registry.OpEncrypt, registry.OpDecrypt, registry.OpGenerateKey,
		registry.OpImportKey, registry.OpExportKey, registry.OpWrapKey, registry.OpUnwrapKey,
	} {
		reg.Register(op, Name, registry.Entry{Impl: impl})
	}
}

func gcmParams(p registry.Params) (normalize.AesGcmParams, error) {
	gcm, ok := p.(normalize.AesGcmParams)
	if !ok {
		return normalize.AesGcmParams{}, fmt.Errorf("%w: expected AES-GCM parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	return gcm, nil
}

func rawKey(k *key.Key) ([]byte, error) {
	b, ok := k.Handle.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: AES-GCM key handle is not raw octets", webcryptoerr.ErrData)
	}

	return b, nil
}

// newAEAD builds a cipher.AEAD whose nonce is exactly ivLen bytes and
// whose authentication tag is tagLengthBits bits, as the caller's
// algorithm descriptor requested. cipher.NewGCMWithTagSize only
// accepts the standard 12-byte nonce; cipher.NewGCMWithNonceSize only
// produces the standard 128-bit tag. A request for both a non-standard
// nonce length and a non-standard tag length at once has no stdlib
// constructor to serve it.
func newAEAD(keyBytes []byte, ivLen, tagLengthBits int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("new AES cipher: %w", err)
	}

	tagSize := tagLengthBits / 8

	if ivLen == 12 {
		return cipher.NewGCMWithTagSize(block, tagSize)
	}

	if tagSize != 16 {
		return nil, fmt.Errorf("%w: AES-GCM tag length %d requires the standard 12-byte IV",
			webcryptoerr.ErrNotSupported, tagLengthBits)
	}

	return cipher.NewGCMWithNonceSize(block, ivLen)
}

func encrypt(p registry.Params, k *key.Key, data []byte) ([]byte, error) {
	gcm, err := gcmParams(p)
	if err != nil {
		return nil, err
	}

	keyBytes, err := rawKey(k)
	if err != nil {
		return nil, err
	}

	a, err := newAEAD(keyBytes, len(gcm.IV), gcm.TagLength)
	if err != nil {
		return nil, fmt.Errorf("new AES-GCM primitive: %w", err)
	}

	return a.Seal(nil, gcm.IV, data, gcm.AdditionalData), nil
}

func decrypt(p registry.Params, k *key.Key, data []byte) ([]byte, error) {
	gcm, err := gcmParams(p)
	if err != nil {
		return nil, err
	}

	keyBytes, err := rawKey(k)
	if err != nil {
		return nil, err
	}

	a, err := newAEAD(keyBytes, len(gcm.IV), gcm.TagLength)
	if err != nil {
		return nil, fmt.Errorf("new AES-GCM primitive: %w", err)
	}

	pt, err := a.Open(nil, gcm.IV, data, gcm.AdditionalData)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return pt, nil
}

// getKeyLength implements the registry's getKeyLength capability.
func getKeyLength(p registry.Params) (int, error) {
	gen, ok := p.(normalize.AesKeyGenParams)
	if !ok {
		return 0, fmt.Errorf("%w: expected AES keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	return gen.Length, nil
}

func generateKey(p registry.Params, extractable bool, usages []key.Usage) (interface{}, error) {
	gen, ok := p.(normalize.AesKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected AES keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	keyBytes := make([]byte, gen.Length/8)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, fmt.Errorf("generate AES-GCM key: %w", err)
	}

	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: Name}, usages, keyBytes)
}

func importKey(format key.Format, material interface{}, p registry.Params, extractable bool,
	usages []key.Usage) (*key.Key, error) {
	keyBytes, err := materialToBytes(format, material)
	if err != nil {
		return nil, err
	}

	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: Name}, usages, keyBytes)
}

func exportKey(format key.Format, k *key.Key) (interface{}, error) {
	keyBytes, err := rawKey(k)
	if err != nil {
		return nil, err
	}

	switch format {
	case key.FormatRaw:
		return keyBytes, nil
	case key.FormatJWK:
		ext := k.Extractable

		return &key.JSONWebKey{
			Kty: "oct",
			K:   base64.RawURLEncoding.EncodeToString(keyBytes),
			Alg: jwkAlgName(len(keyBytes)),
			Ext: &ext,
		}, nil
	default:
		return nil, fmt.Errorf("%w: AES-GCM does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}

func jwkAlgName(keyLenBytes int) string {
	switch keyLenBytes {
	case 16:
		return "A128GCM"
	case 24:
		return "A192GCM"
	default:
		return "A256GCM"
	}
}

func materialToBytes(format key.Format, material interface{}) ([]byte, error) {
	switch format {
	case key.FormatRaw:
		b, ok := material.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: raw AES-GCM import expects an octet buffer", webcryptoerr.ErrType)
		}

		return b, nil
	case key.FormatJWK:
		jwk, ok := material.(*key.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk AES-GCM import expects a JSON Web Key", webcryptoerr.ErrType)
		}

		if jwk.Kty != "oct" {
			return nil, fmt.Errorf("%w: AES-GCM JWK must have kty=oct, got %q", webcryptoerr.ErrData, jwk.Kty)
		}

		b, err := base64.RawURLEncoding.DecodeString(jwk.K)
		if err != nil {
			return nil, fmt.Errorf("%w: AES-GCM JWK member k is not valid base64url: %v", webcryptoerr.ErrData, err)
		}

		return b, nil
	default:
		return nil, fmt.Errorf("%w: AES-GCM does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}

// wrapKey encrypts octets (key material already exported by the
// caller) under wrappingKey's AES-GCM key, using the wrap algorithm's
// own IV/additionalData parameters.
func wrapKey(p registry.Params, wrappingKey *key.Key, octets []byte) ([]byte, error) {
	return encrypt(p, wrappingKey, octets)
}

// unwrapKey reverses wrapKey.
func unwrapKey(p registry.Params, unwrappingKey *key.Key, wrapped []byte) ([]byte, error) {
	return decrypt(p, unwrappingKey, wrapped)
}
