/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rsaoaep registers the RSA-OAEP algorithm module. Encrypt,
// decrypt, generateKey, importKey, exportKey, wrapKey, and unwrapKey
// all run over stdlib crypto/rsa keys: tink-go v1.5's hybrid-encryption
// package implements ECIES, not RSA-OAEP, so there is no in-pack
// RSA-OAEP primitive to reach for (see DESIGN.md). JWK encoding uses
// go-jose, a direct teacher go.mod dependency.
package rsaoaep

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"hash"

	jose "github.com/square/go-jose/v3"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Name is the canonical algorithm name this module registers.
const Name = "RSA-OAEP"

func init() {
	Register(registry.Default())
}

// Register adds the RSA-OAEP entries to reg.
func Register(reg *registry.Registry) {
	impl := registry.Module{
		Encrypt:     encrypt,
		Decrypt:     decrypt,
		GenerateKey: generateKey,
		ImportKey:   importKey,
		ExportKey:   exportKey,
		WrapKey:     wrapKey,
		UnwrapKey:   unwrapKey,
	}

	for _, op := range []registry.Operation{
		registry.OpEncrypt, registry.OpDecrypt, registry.OpGenerateKey,
		registry.OpImportKey, registry.OpExportKey, registry.OpWrapKey, registry.OpUnwrapKey,
	} {
		reg.Register(op, Name, registry.Entry{Impl: impl})
	}
}

func hashFunc(name string) (func() hash.Hash, error) {
	switch name {
	case "SHA-256":
		return sha256.New, nil
	case "SHA-384":
		return sha512.New384, nil
	case "SHA-512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: unsupported RSA-OAEP hash %q", webcryptoerr.ErrNotSupported, name)
	}
}

func oaepHashOf(k *key.Key) (func() hash.Hash, error) {
	name, _ := k.Algorithm.Params["hash"].(string)

	return hashFunc(name)
}

func encrypt(p registry.Params, k *key.Key, data []byte) ([]byte, error) {
	params, ok := p.(normalize.RsaOaepParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected RSA-OAEP parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	pub, ok := k.Handle.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: RSA-OAEP encrypt requires a public key handle", webcryptoerr.ErrInvalidAccess)
	}

	newHash, err := oaepHashOf(k)
	if err != nil {
		return nil, err
	}

	ct, err := rsa.EncryptOAEP(newHash(), rand.Reader, pub, data, params.Label)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	return ct, nil
}

func decrypt(p registry.Params, k *key.Key, data []byte) ([]byte, error) {
	params, ok := p.(normalize.RsaOaepParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected RSA-OAEP parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	priv, ok := k.Handle.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: RSA-OAEP decrypt requires a private key handle", webcryptoerr.ErrInvalidAccess)
	}

	newHash, err := oaepHashOf(k)
	if err != nil {
		return nil, err
	}

	pt, err := rsa.DecryptOAEP(newHash(), rand.Reader, priv, data, params.Label)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return pt, nil
}

func generateKey(p registry.Params, extractable bool, usages []key.Usage) (interface{}, error) {
	gen, ok := p.(normalize.RsaHashedKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected RSA keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	priv, err := rsa.GenerateKey(rand.Reader, gen.ModulusLength)
	if err != nil {
		return nil, fmt.Errorf("generate RSA-OAEP key: %w", err)
	}

	alg := key.Algorithm{Name: Name, Params: map[string]interface{}{"hash": gen.Hash.Name}}

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
	gen, ok := p.(normalize.RsaHashedKeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected RSA keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
	}

	alg := key.Algorithm{Name: Name, Params: map[string]interface{}{"hash": gen.Hash.Name}}

	switch format {
	case key.FormatSPKI:
		b, ok := material.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: spki RSA-OAEP import expects an octet buffer", webcryptoerr.ErrType)
		}

		pub, err := x509.ParsePKIXPublicKey(b)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid SPKI: %v", webcryptoerr.ErrData, err)
		}

		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: SPKI does not contain an RSA public key", webcryptoerr.ErrData)
		}

		return key.New(key.TypePublic, true, alg, usages, rsaPub)
	case key.FormatPKCS8:
		b, ok := material.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: pkcs8 RSA-OAEP import expects an octet buffer", webcryptoerr.ErrType)
		}

		priv, err := x509.ParsePKCS8PrivateKey(b)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid PKCS8: %v", webcryptoerr.ErrData, err)
		}

		rsaPriv, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS8 does not contain an RSA private key", webcryptoerr.ErrData)
		}

		return key.New(key.TypePrivate, extractable, alg, usages, rsaPriv)
	case key.FormatJWK:
		return importJWK(material, alg, extractable, usages)
	default:
		return nil, fmt.Errorf("%w: RSA-OAEP does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}

func importJWK(material interface{}, alg key.Algorithm, extractable bool, usages []key.Usage) (*key.Key, error) {
	jwk, ok := material.(*key.JSONWebKey)
	if !ok {
		return nil, fmt.Errorf("%w: jwk RSA-OAEP import expects a JSON Web Key", webcryptoerr.ErrType)
	}

	raw, err := json.Marshal(jwk)
	if err != nil {
		return nil, fmt.Errorf("%w: re-marshal JWK: %v", webcryptoerr.ErrData, err)
	}

	var jj jose.JSONWebKey
	if err := jj.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: invalid RSA JWK: %v", webcryptoerr.ErrData, err)
	}

	switch k := jj.Key.(type) {
	case *rsa.PublicKey:
		return key.New(key.TypePublic, true, alg, usages, k)
	case *rsa.PrivateKey:
		return key.New(key.TypePrivate, extractable, alg, usages, k)
	default:
		return nil, fmt.Errorf("%w: JWK does not contain an RSA key", webcryptoerr.ErrData)
	}
}

func exportKey(format key.Format, k *key.Key) (interface{}, error) {
	switch format {
	case key.FormatSPKI:
		pub, ok := k.Handle.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: spki export requires a public key", webcryptoerr.ErrInvalidAccess)
		}

		return x509.MarshalPKIXPublicKey(pub)
	case key.FormatPKCS8:
		priv, ok := k.Handle.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: pkcs8 export requires a private key", webcryptoerr.ErrInvalidAccess)
		}

		return x509.MarshalPKCS8PrivateKey(priv)
	case key.FormatJWK:
		return exportJWK(k)
	default:
		return nil, fmt.Errorf("%w: RSA-OAEP does not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}

func exportJWK(k *key.Key) (*key.JSONWebKey, error) {
	jj := jose.JSONWebKey{Key: k.Handle, Algorithm: "RSA-OAEP"}

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
}

// wrapKey and unwrapKey delegate to encrypt/decrypt: RSA-OAEP has no
// dedicated wrapping capability distinct from its encrypt transform.
func wrapKey(p registry.Params, wrappingKey *key.Key, octets []byte) ([]byte, error) {
	return encrypt(p, wrappingKey, octets)
}

func unwrapKey(p registry.Params, unwrappingKey *key.Key, wrapped []byte) ([]byte, error) {
	return decrypt(p, unwrappingKey, wrapped)
}
