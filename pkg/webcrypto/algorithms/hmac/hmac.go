/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package hmac registers the HMAC algorithm module: sign, verify,
// generateKey, importKey, and exportKey over raw key material,
// grounded on tinkcrypto.Crypto.ComputeMAC/VerifyMAC from the teacher
// repo (subtle-level here, since raw import/export must round-trip
// caller octets directly rather than through a tink keyset).
package hmac

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	macsubtle "github.com/google/tink/go/mac/subtle"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Name is the canonical algorithm name this module registers.
const Name = "HMAC"

func init() {
	Register(registry.Default())
}

// Register adds the HMAC entries to reg.
func Register(reg *registry.Registry) {
	impl := registry.Module{
		Sign:         sign,
		Verify:       verify,
		GenerateKey:  generateKey,
		ImportKey:    importKey,
		ExportKey:    exportKey,
		GetKeyLength: getKeyLength,
	}

	for _, op := range []registry.Operation{
		registry.OpSign, registry.OpVerify, registry.OpGenerateKey,
		registry.OpImportKey, registry.OpExportKey,
	} {
		reg.Register(op, Name, registry.Entry{Impl: impl})
	}
}

type keyHandle struct {
	bytes []byte
	hash  string
}

func tinkHashName(name string) (string, uint32, error) {
	switch name {
	case "SHA-256":
		return "SHA256", 32, nil
	case "SHA-384":
		return "SHA384", 48, nil
	case "SHA-512":
		return "SHA512", 64, nil
	default:
		return "", 0, fmt.Errorf("%w: unsupported HMAC hash %q", webcryptoerr.ErrNotSupported, name)
	}
}

func handleOf(k *key.Key) (*keyHandle, error) {
	h, ok := k.Handle.(*keyHandle)
	if !ok {
		return nil, fmt.Errorf("%w: HMAC key handle is malformed", webcryptoerr.ErrData)
	}

	return h, nil
}

func sign(k *key.Key, data []byte) ([]byte, error) {
	h, err := handleOf(k)
	if err != nil {
		return nil, err
	}

	tinkHash, tagSize, err := tinkHashName(h.hash)
	if err != nil {
		return nil, err
	}

	m, err := macsubtle.NewHMAC(tinkHash, h.bytes, tagSize)
	if err != nil {
		return nil, fmt.Errorf("new HMAC primitive: %w", err)
	}

	return m.ComputeMAC(data)
}

func verify(k *key.Key, sig, data []byte) (bool, error) {
	h, err := handleOf(k)
	if err != nil {
		return false, err
	}

	tinkHash, tagSize, err := tinkHashName(h.hash)
	if err != nil {
		return false, err
	}

	m, err := macsubtle.NewHMAC(tinkHash, h.bytes, tagSize)
	if err != nil {
		return false, fmt.Errorf("new HMAC primitive: %w", err)
	}

	if err := m.VerifyMAC(sig, data); err != nil {
		return false, nil // invalid signature resolves false, not an OperationError
	}

	return true, nil
}

// getKeyLength implements the registry's getKeyLength capability: an
// explicit length wins, otherwise the key defaults to the hash's tag
// size, mirroring the generateKey default below.
func getKeyLength(p registry.Params) (int, error) {
	gen, ok := p.(normalize.HmacKeyGenParams)
	if !ok {
		return 0, fmt.Errorf("%w: expected HMAC keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	if gen.Length != 0 {
		return gen.Length, nil
	}

	_, tagSize, err := tinkHashName(gen.Hash.Name)
	if err != nil {
		return 0, err
	}

	return int(tagSize) * 8, nil
}

func generateKey(p registry.Params, extractable bool, usages []key.Usage) (interface{}, error) {
	gen, ok := p.(normalize.HmacKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected HMAC keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	length, err := getKeyLength(p)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, length/8)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate HMAC key: %w", err)
	}

	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: Name, Params: map[string]interface{}{"hash": gen.Hash.Name}},
		usages, &keyHandle{bytes: raw, hash: gen.Hash.Name})
}

func importKey(format key.Format, material interface{}, p registry.Params, extractable bool,
	usages []key.Usage) (*key.Key, error) {
	gen, ok := p.(normalize.HmacKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected HMAC keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	raw, err := materialToBytes(format, material)
	if err != nil {
		return nil, err
	}

	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: Name, Params: map[string]interface{}{"hash": gen.Hash.Name}},
		usages, &keyHandle{bytes: raw, hash: gen.Hash.Name})
}

func exportKey(format key.Format, k *key.Key) (interface{}, error) {
	h, err := handleOf(k)
	if err != nil {
		return nil, err
	}

	switch format {
	case key.FormatRaw:
		return h.bytes, nil
	case key.FormatJWK:
		ext := k.Extractable

		return &key.JSONWebKey{
			Kty: "oct",
			K:   base64.RawURLEncoding.EncodeToString(h.bytes),
			Alg: "HS" + h.hash[4:],
			Ext: &ext,
		}, nil
	default:
		return nil, fmt.Errorf("%w: HMAC does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}

func materialToBytes(format key.Format, material interface{}) ([]byte, error) {
	switch format {
	case key.FormatRaw:
		b, ok := material.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: raw HMAC import expects an octet buffer", webcryptoerr.ErrType)
		}

		return b, nil
	case key.FormatJWK:
		jwk, ok := material.(*key.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk HMAC import expects a JSON Web Key", webcryptoerr.ErrType)
		}

		b, err := base64.RawURLEncoding.DecodeString(jwk.K)
		if err != nil {
			return nil, fmt.Errorf("%w: HMAC JWK member k is not valid base64url: %v", webcryptoerr.ErrData, err)
		}

		return b, nil
	default:
		return nil, fmt.Errorf("%w: HMAC does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}
