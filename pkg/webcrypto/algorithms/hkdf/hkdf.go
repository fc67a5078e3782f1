/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package hkdf registers the HKDF deriveBits algorithm, grounded on
// golang.org/x/crypto/hkdf (already a teacher go.mod dependency via
// the wider x/crypto module). HKDF never supports a key-producing
// deriveKey capability of its own: deriveKey is synthesized by the
// dispatcher from deriveBits plus importKey (spec §4.4), so this
// module only needs to expose DeriveBits and ImportKey/GenerateKey for
// the base key itself.
package hkdf

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	xhkdf "golang.org/x/crypto/hkdf"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Name is the canonical algorithm name this module registers.
const Name = "HKDF"

func init() {
	Register(registry.Default())
}

// Register adds the HKDF entries to reg.
func Register(reg *registry.Registry) {
	impl := registry.Module{
		DeriveBits:  deriveBits,
		GenerateKey: generateKey,
		ImportKey:   importKey,
	}

	for _, op := range []registry.Operation{registry.OpDeriveBits, registry.OpGenerateKey, registry.OpImportKey} {
		reg.Register(op, Name, registry.Entry{Impl: impl})
	}
}

func hashNew(name string) (func() hash.Hash, error) {
	switch name {
	case "SHA-256":
		return sha256.New, nil
	case "SHA-384":
		return sha512.New384, nil
	case "SHA-512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: unsupported HKDF hash %q", webcryptoerr.ErrNotSupported, name)
	}
}

func deriveBits(p registry.Params, baseKey *key.Key, length int) ([]byte, error) {
	params, ok := p.(normalize.HkdfParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected HKDF parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	secret, ok := baseKey.Handle.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: HKDF base key handle is not raw octets", webcryptoerr.ErrData)
	}

	newHash, err := hashNew(params.Hash.Name)
	if err != nil {
		return nil, err
	}

	if length <= 0 || length%8 != 0 {
		return nil, fmt.Errorf("%w: HKDF deriveBits length must be a positive multiple of 8", webcryptoerr.ErrOperation)
	}

	r := xhkdf.New(newHash, secret, params.Salt, params.Info)

	out := make([]byte, length/8)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("derive bits: %w", err)
	}

	return out, nil
}

// generateKey produces a base key of raw random octets: HKDF input
// keying material has no intrinsic structure, only length.
func generateKey(p registry.Params, extractable bool, usages []key.Usage) (interface{}, error) {
	gen, ok := p.(normalize.AesKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected octet-length parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	raw := make([]byte, gen.Length/8)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate HKDF base key: %w", err)
	}

	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: Name}, usages, raw)
}

func importKey(format key.Format, material interface{}, p registry.Params, extractable bool,
	usages []key.Usage) (*key.Key, error) {
	if format != key.FormatRaw {
		return nil, fmt.Errorf("%w: HKDF only supports raw import", webcryptoerr.ErrNotSupported)
	}

	b, ok := material.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: raw HKDF import expects an octet buffer", webcryptoerr.ErrType)
	}

	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: Name}, usages, b)
}
