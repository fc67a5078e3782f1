/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rsassa registers both RSASSA-PKCS1-v1_5 and RSA-PSS under
// separate registry entries backed by the same stdlib crypto/rsa
// signing primitives (see DESIGN.md for why tink's keyset-bound
// signer is not used here).
package rsassa

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/json"
	"fmt"
	hashpkg "hash"

	jose "github.com/square/go-jose/v3"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

// Names of the two algorithm entries this package registers.
const (
	NamePKCS1v15 = "RSASSA-PKCS1-v1_5"
	NamePSS      = "RSA-PSS"
)

func init() {
	Register(registry.Default())
}

// Register adds the RSASSA-PKCS1-v1_5 and RSA-PSS entries to reg.
func Register(reg *registry.Registry) {
	pkcs1 := registry.Module{
		Sign:        signPKCS1,
		Verify:      verifyPKCS1,
		GenerateKey: generateKey(NamePKCS1v15),
		ImportKey:   importKey(NamePKCS1v15),
		ExportKey:   exportKey,
	}

	pss := registry.Module{
		Sign:        signPSS,
		Verify:      verifyPSS,
		GenerateKey: generateKey(NamePSS),
		ImportKey:   importKey(NamePSS),
		ExportKey:   exportKey,
	}

	for _, op := range []registry.Operation{
		registry.OpSign, registry.OpVerify, registry.OpGenerateKey, registry.OpImportKey, registry.OpExportKey,
	} {
		reg.Register(op, NamePKCS1v15, registry.Entry{Impl: pkcs1})
		reg.Register(op, NamePSS, registry.Entry{Impl: pss})
	}
}

func cryptoHash(name string) (crypto.Hash, func() hashpkg.Hash, error) {
	switch name {
	case "SHA-256":
		return crypto.SHA256, sha256.New, nil
	case "SHA-384":
		return crypto.SHA384, sha512.New384, nil
	case "SHA-512":
		return crypto.SHA512, sha512.New, nil
	default:
		return 0, nil, fmt.Errorf("%w: unsupported RSA signature hash %q", webcryptoerr.ErrNotSupported, name)
	}
}

func privateKeyOf(k *key.Key) (*rsa.PrivateKey, error) {
	priv, ok := k.Handle.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: RSA sign requires a private key handle", webcryptoerr.ErrInvalidAccess)
	}

	return priv, nil
}

func publicKeyOf(k *key.Key) (*rsa.PublicKey, error) {
	switch h := k.Handle.(type) {
	case *rsa.PublicKey:
		return h, nil
	case *rsa.PrivateKey:
		return &h.PublicKey, nil
	default:
		return nil, fmt.Errorf("%w: RSA verify requires a public key handle", webcryptoerr.ErrInvalidAccess)
	}
}

func hashName(k *key.Key) (string, bool) {
	name, ok := k.Algorithm.Params["hash"].(string)

	return name, ok
}

func digestFor(k *key.Key, data []byte) (crypto.Hash, []byte, error) {
	name, ok := hashName(k)
	if !ok {
		return 0, nil, fmt.Errorf("%w: RSA key is missing its hash parameter", webcryptoerr.ErrData)
	}

	ch, newHash, err := cryptoHash(name)
	if err != nil {
		return 0, nil, err
	}

	h := newHash()
	h.Write(data)

	return ch, h.Sum(nil), nil
}

func signPKCS1(k *key.Key, data []byte) ([]byte, error) {
	priv, err := privateKeyOf(k)
	if err != nil {
		return nil, err
	}

	ch, digest, err := digestFor(k, data)
	if err != nil {
		return nil, err
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, ch, digest)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	return sig, nil
}

func verifyPKCS1(k *key.Key, sig, data []byte) (bool, error) {
	pub, err := publicKeyOf(k)
	if err != nil {
		return false, err
	}

	ch, digest, err := digestFor(k, data)
	if err != nil {
		return false, err
	}

	if err := rsa.VerifyPKCS1v15(pub, ch, digest, sig); err != nil {
		return false, nil
	}

	return true, nil
}

func signPSS(k *key.Key, data []byte) ([]byte, error) {
	priv, err := privateKeyOf(k)
	if err != nil {
		return nil, err
	}

	ch, digest, err := digestFor(k, data)
	if err != nil {
		return nil, err
	}

	sig, err := rsa.SignPSS(rand.Reader, priv, ch, digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: ch})
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	return sig, nil
}

func verifyPSS(k *key.Key, sig, data []byte) (bool, error) {
	pub, err := publicKeyOf(k)
	if err != nil {
		return false, err
	}

	ch, digest, err := digestFor(k, data)
	if err != nil {
		return false, err
	}

	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: ch}
	if err := rsa.VerifyPSS(pub, ch, digest, sig, opts); err != nil {
		return false, nil
	}

	return true, nil
}

func generateKey(name string) func(registry.Params, bool, []key.Usage) (interface{}, error) {
	return func(p registry.Params, extractable bool, usages []key.Usage) (interface{}, error) {
		gen, ok := p.(normalize.RsaHashedKeyGenParams)
		if !ok {
			return nil, fmt.Errorf("%w: expected RSA keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
		}

		priv, err := rsa.GenerateKey(rand.Reader, gen.ModulusLength)
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", name, err)
		}

		alg := key.Algorithm{Name: name, Params: map[string]interface{}{"hash": gen.Hash.Name}}

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
}

func importKey(name string) func(key.Format, interface{}, registry.Params, bool, []key.Usage) (*key.Key, error) {
	return func(format key.Format, material interface{}, p registry.Params, extractable bool,
		usages []key.Usage) (*key.Key, error) {
		gen, ok := p.(normalize.RsaHashedKeyGenParams)
		if !ok {
			return nil, fmt.Errorf("%w: expected RSA keygen parameters, got %T", webcryptoerr.ErrSyntax, p)
		}

		alg := key.Algorithm{Name: name, Params: map[string]interface{}{"hash": gen.Hash.Name}}

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

			rsaPub, ok := pub.(*rsa.PublicKey)
			if !ok {
				return nil, fmt.Errorf("%w: SPKI does not contain an RSA public key", webcryptoerr.ErrData)
			}

			return key.New(key.TypePublic, true, alg, usages, rsaPub)
		case key.FormatPKCS8:
			b, ok := material.([]byte)
			if !ok {
				return nil, fmt.Errorf("%w: pkcs8 import expects an octet buffer", webcryptoerr.ErrType)
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
				return nil, fmt.Errorf("%w: invalid RSA JWK: %v", webcryptoerr.ErrData, err)
			}

			switch hk := jj.Key.(type) {
			case *rsa.PublicKey:
				return key.New(key.TypePublic, true, alg, usages, hk)
			case *rsa.PrivateKey:
				return key.New(key.TypePrivate, extractable, alg, usages, hk)
			default:
				return nil, fmt.Errorf("%w: JWK does not contain an RSA key", webcryptoerr.ErrData)
			}
		default:
			return nil, fmt.Errorf("%w: %s does not support format %q", webcryptoerr.ErrNotSupported, name, format)
		}
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
		priv, ok := k.Handle.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: pkcs8 export requires a private key", webcryptoerr.ErrInvalidAccess)
		}

		return x509.MarshalPKCS8PrivateKey(priv)
	case key.FormatJWK:
		jj := jose.JSONWebKey{Key: k.Handle, Algorithm: k.Algorithm.Name}

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
		return nil, fmt.Errorf("%w: RSA signature keys do not support format %q", webcryptoerr.ErrNotSupported, format)
	}
}
