/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package key defines the opaque key handle, key pair, algorithm
// descriptor, and JSON Web Key types shared by every component of the
// dispatch core, along with the construction-time invariants that every
// Key must satisfy.
package key

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
)

// Type identifies whether a Key carries secret, private, or public
// material.
type Type string

// Recognized key types.
const (
	TypeSecret  Type = "secret"
	TypePrivate Type = "private"
	TypePublic  Type = "public"
)

// Usage is a token from the fixed vocabulary authorizing one operation
// on one key.
type Usage string

// Recognized usages.
const (
	UsageEncrypt    Usage = "encrypt"
	UsageDecrypt    Usage = "decrypt"
	UsageSign       Usage = "sign"
	UsageVerify     Usage = "verify"
	UsageDeriveKey  Usage = "deriveKey"
	UsageDeriveBits Usage = "deriveBits"
	UsageWrapKey    Usage = "wrapKey"
	UsageUnwrapKey  Usage = "unwrapKey"
)

// AllUsages lists every recognized usage token.
func AllUsages() []Usage {
	return []Usage{
		UsageEncrypt, UsageDecrypt, UsageSign, UsageVerify,
		UsageDeriveKey, UsageDeriveBits, UsageWrapKey, UsageUnwrapKey,
	}
}

// IsValidUsage reports whether u is one of the recognized tokens.
func IsValidUsage(u Usage) bool {
	for _, valid := range AllUsages() {
		if u == valid {
			return true
		}
	}

	return false
}

// publicUsages is the subset of usages a public key may carry.
var publicUsages = map[Usage]bool{
	UsageEncrypt: true,
	UsageVerify:  true,
	UsageWrapKey: true,
}

// Format is one of the recognized key-material encodings.
type Format string

// Recognized formats.
const (
	FormatRaw   Format = "raw"
	FormatPKCS8 Format = "pkcs8"
	FormatSPKI  Format = "spki"
	FormatJWK   Format = "jwk"
)

// Algorithm is a caller-supplied or normalized record naming an
// algorithm and carrying its algorithm-specific members. Params uses
// string keys so both the loosely-typed caller descriptor and the
// normalized parameter record can be represented uniformly at this
// layer; operation-specific typed views live in package normalize.
type Algorithm struct {
	Name   string
	Params map[string]interface{}
}

// DescriptorName and DescriptorParams let an Algorithm be passed
// directly to normalize.Normalize alongside bare strings and
// map[string]interface{} descriptors.
func (a Algorithm) DescriptorName() string { return a.Name }

func (a Algorithm) DescriptorParams() map[string]interface{} { return a.Params }

// Key is an opaque handle binding key material, algorithm, usages, and
// extractability. Handle is owned by exactly one algorithm module and
// must never be inspected outside it.
type Key struct {
	id          string
	Type        Type
	Extractable bool
	Algorithm   Algorithm
	Usages      []Usage
	Handle      interface{}
}

// ID returns a diagnostic-only identifier for log correlation. It is
// never part of a key's exported JWK or octet representation.
func (k *Key) ID() string {
	return k.id
}

// HasUsage reports whether u is present in k's usage set.
func (k *Key) HasUsage(u Usage) bool {
	for _, have := range k.Usages {
		if have == u {
			return true
		}
	}

	return false
}

// New constructs a Key, enforcing the invariants of spec §3:
//   - a public key may only carry usages ⊆ {encrypt, verify, wrapKey}
//   - a secret or private key must have a non-empty usage set
//   - usage tokens must already be validated (see package validate)
func New(typ Type, extractable bool, alg Algorithm, usages []Usage, handle interface{}) (*Key, error) {
	if alg.Name == "" {
		return nil, fmt.Errorf("%w: key algorithm name is required", webcryptoerr.ErrSyntax)
	}

	switch typ {
	case TypePublic:
		for _, u := range usages {
			if !publicUsages[u] {
				return nil, fmt.Errorf("%w: public key usage %q not in {encrypt,verify,wrapKey}",
					webcryptoerr.ErrSyntax, u)
			}
		}
	case TypeSecret, TypePrivate:
		if len(usages) == 0 {
			return nil, fmt.Errorf("%w: %s key must have at least one usage", webcryptoerr.ErrSyntax, typ)
		}
	default:
		return nil, fmt.Errorf("%w: unrecognized key type %q", webcryptoerr.ErrSyntax, typ)
	}

	return &Key{
		id:          uuid.New().String(),
		Type:        typ,
		Extractable: extractable,
		Algorithm:   alg,
		Usages:      append([]Usage(nil), usages...),
		Handle:      handle,
	}, nil
}

// Pair is a generated or imported public/private key pair. Both keys
// share the same algorithm name; PrivateKey.Usages must be non-empty,
// which New already guarantees for any TypePrivate key.
type Pair struct {
	PublicKey  *Key
	PrivateKey *Key
}

// NewPair validates that both halves of the pair share the same
// algorithm name before returning them bound together.
func NewPair(pub, priv *Key) (*Pair, error) {
	if pub.Algorithm.Name != priv.Algorithm.Name {
		return nil, fmt.Errorf("%w: key pair algorithm mismatch: %q != %q",
			webcryptoerr.ErrInvalidAccess, pub.Algorithm.Name, priv.Algorithm.Name)
	}

	return &Pair{PublicKey: pub, PrivateKey: priv}, nil
}

// JSONWebKey is the structured key representation described in spec §6,
// covering both symmetric (`k`) and asymmetric (RSA, EC/OKP) members.
type JSONWebKey struct {
	Kty    string   `json:"kty"`
	Alg    string   `json:"alg,omitempty"`
	Ext    *bool    `json:"ext,omitempty"`
	Use    string   `json:"use,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`

	// Symmetric.
	K string `json:"k,omitempty"`

	// RSA.
	N  string `json:"n,omitempty"`
	E  string `json:"e,omitempty"`
	D  string `json:"d,omitempty"`
	P  string `json:"p,omitempty"`
	Q  string `json:"q,omitempty"`
	DP string `json:"dp,omitempty"`
	DQ string `json:"dq,omitempty"`
	QI string `json:"qi,omitempty"`

	// EC / OKP.
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}
