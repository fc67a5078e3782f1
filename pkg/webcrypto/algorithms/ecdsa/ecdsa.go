/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ecdsa registers the ECDSA algorithm module over the NIST
// P-256/P-384/P-521 curves, backed by stdlib crypto/ecdsa for the same
// byte-round-trip reason as package rsassa (see DESIGN.md).
package ecdsa

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"hash"
	"math/big"

	jose "github.com/square/go-jose/v3"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Name is the canonical algorithm name this module registers.
const Name = "ECDSA"

func init() {
	Register(registry.Default())
}

// Register adds the ECDSA entries to reg.
func Register(reg *registry.Registry) {
	impl := registry.Module{
		Sign:        sign,
		Verify:      verify,
		GenerateKey: generateKey,
		ImportKey:   importKey,
		ExportKey:   exportKey,
	}

	for _, op := range []registry.Operation{
		registry.OpSign, registry.OpVerify, registry.OpGenerateKey, registry.OpImportKey, registry.OpExportKey,
	} {
		reg.Register(op, Name, registry.Entry{Impl: impl})
	}
}

func curveFor(name string) (elliptic.Curve, error) {
	switch name {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported ECDSA curve %q", webcryptoerr.ErrNotSupported, name)
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
		return nil, fmt.Errorf("%w: unsupported ECDSA hash %q", webcryptoerr.ErrNotSupported, name)
	}
}

func sign(k *key.Key, data []byte) ([]byte, error) {
	priv, ok := k.Handle.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: ECDSA sign requires a private key handle", webcryptoerr.ErrInvalidAccess)
	}

	digest, err := digestForKey(k, data)
	if err != nil {
		return nil, err
	}

	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	return rawSignature(priv.Curve, r, s), nil
}

func verify(k *key.Key, sig, data []byte) (bool, error) {
	pub, err := publicKeyOf(k)
	if err != nil {
		return false, err
	}

	digest, err := digestForKey(k, data)
	if err != nil {
		return false, err
	}

	r, s, err := parseRawSignature(pub.Curve, sig)
	if err != nil {
		return false, nil
	}

	return ecdsa.Verify(pub, digest, r, s), nil
}

func digestForKey(k *key.Key, data []byte) ([]byte, error) {
	name, _ := k.Algorithm.Params["hash"].(string)

	newHash, err := hashNew(name)
	if err != nil {
		return nil, err
	}

	h := newHash()
	h.Write(data)

	return h.Sum(nil), nil
}

func publicKeyOf(k *key.Key) (*ecdsa.PublicKey, error) {
	switch h := k.Handle.(type) {
	case *ecdsa.PublicKey:
		return h, nil
	case *ecdsa.PrivateKey:
		return &h.PublicKey, nil
	default:
		return nil, fmt.Errorf("%w: ECDSA verify requires a public key handle", webcryptoerr.ErrInvalidAccess)
	}
}

func curveByteSize(c elliptic.Curve) int {
	return (c.Params().BitSize + 7) / 8
}

func rawSignature(c elliptic.Curve, r, s *big.Int) []byte {
	n := curveByteSize(c)
	out := make([]byte, 2*n)
	r.FillBytes(out[:n])
	s.FillBytes(out[n:])

	return out
}

func parseRawSignature(c elliptic.Curve, sig []byte) (*big.Int, *big.Int, error) {
	n := curveByteSize(c)
	if len(sig) != 2*n {
		return nil, nil, fmt.Errorf("%w: ECDSA signature has wrong length for curve", webcryptoerr.ErrData)
	}

	r := new(big.Int).SetBytes(sig[:n])
	s := new(big.Int).SetBytes(sig[n:])

	return r, s, nil
}

func generateKey(p registry.Params, extractable bool, usages []key.Usage) (interface{}, error) {
	gen, ok := p.(normalize.EcKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected EC keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	curve, err := curveFor(gen.NamedCurve)
	if err != nil {
		return nil, err
	}

	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ECDSA key: %w", err)
	}

	alg := key.Algorithm{Name: Name, Params: map[string]interface{}{"namedCurve": gen.NamedCurve}}

	pub, err := key.New(key.TypePublic, true, alg, usages, &priv.PublicKey)
	if err != nil {
		return nil, err
	}

	pk, err := key.New(key.TypePrivate, extractable, alg, usages, priv)
	if err != nil {
		return nil, err
	}

	return key.NewPair(pub, pk)
}

func importKey(format key.Format, material interface{}, p registry.Params, extractable bool,
	usages []key.Usage) (*key.Key, error) {
	gen, ok := p.(normalize.EcKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected EC keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	alg := key.Algorithm{Name: Name, Params: map[string]interface{}{"namedCurve": gen.NamedCurve}}

	switch format {
	case key.FormatSPKI:
		b, ok := material.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: spki import expects an octet buffer", webcryptoerr.ErrType)
		}

		pub, err := x509.ParsePKIXPublicKey(b)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid SPKI: %v", webcryptoerr.ErrData, err)
		}

		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: SPKI does not contain an EC public key", webcryptoerr.ErrData)
		}

		return key.New(key.TypePublic, true, alg, usages, ecPub)
	case key.FormatPKCS8:
		b, ok := material.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: pkcs8 import expects an octet buffer", webcryptoerr.ErrType)
		}

		priv, err := x509.ParsePKCS8PrivateKey(b)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid PKCS8: %v", webcryptoerr.ErrData, err)
		}

		ecPriv, ok := priv.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS8 does not contain an EC private key", webcryptoerr.ErrData)
		}

		return key.New(key.TypePrivate, extractable, alg, usages, ecPriv)
	case key.FormatJWK:
		jwk, ok := material.(*key.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk import expects a JSON Web Key", webcryptoerr.ErrType)
		}

		raw, err := json.Marshal(jwk)
		if err != nil {
			return nil, fmt.Errorf("%w: re-marshal JWK: %v", webcryptoerr.ErrData, err)
		}

		var jj jose.JSONWebKey
		if err := jj.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("%w: invalid EC JWK: %v", webcryptoerr.ErrData, err)
		}

		switch hk := jj.Key.(type) {
		case *ecdsa.PublicKey:
			return key.New(key.TypePublic, true, alg, usages, hk)
		case *ecdsa.PrivateKey:
			return key.New(key.TypePrivate, extractable, alg, usages, hk)
		default:
			return nil, fmt.Errorf("%w: JWK does not contain an EC key", webcryptoerr.ErrData)
		}
	default:
		return nil, fmt.Errorf("%w: ECDSA does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}

func exportKey(format key.Format, k *key.Key) (interface{}, error) {
	switch format {
	case key.FormatSPKI:
		pub, err := publicKeyOf(k)
		if err != nil {
			return nil, err
		}

		return x509.MarshalPKIXPublicKey(pub)
	case key.FormatPKCS8:
		priv, ok := k.Handle.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: pkcs8 export requires a private key", webcryptoerr.ErrInvalidAccess)
		}

		return x509.MarshalPKCS8PrivateKey(priv)
	case key.FormatJWK:
		jj := jose.JSONWebKey{Key: k.Handle, Algorithm: "ES256"}

		raw, err := jj.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal JWK: %w", err)
		}

		out := &key.JSONWebKey{}
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("unmarshal JWK: %w", err)
		}

		ext := k.Extractable
		out.Ext = &ext

		return out, nil
	default:
		return nil, fmt.Errorf("%w: ECDSA does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}
