/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/validate"
)

func mustKey(t *testing.T, typ key.Type, usages []key.Usage, extractable bool) *key.Key {
	t.Helper()

	k, err := key.New(typ, extractable, key.Algorithm{Name: "AES-GCM"}, usages, nil)
	require.NoError(t, err)

	return k
}

func TestAlgorithmMatch(t *testing.T) {
	k := mustKey(t, key.TypeSecret, []key.Usage{key.UsageEncrypt}, true)

	require.NoError(t, validate.AlgorithmMatch("AES-GCM", k))

	err := validate.AlgorithmMatch("AES-KW", k)
	require.True(t, errors.Is(err, webcryptoerr.ErrInvalidAccess))
}

func TestUsageGateRunsBeforeAlgorithm(t *testing.T) {
	k := mustKey(t, key.TypeSecret, []key.Usage{key.UsageEncrypt}, true)

	err := validate.Usage(registry.OpDecrypt, k)
	require.True(t, errors.Is(err, webcryptoerr.ErrInvalidAccess))

	require.NoError(t, validate.Usage(registry.OpEncrypt, k))
	require.NoError(t, validate.Usage(registry.OpDigest, k), "digest has no usage requirement")
}

func TestExtractable(t *testing.T) {
	extractable := mustKey(t, key.TypeSecret, []key.Usage{key.UsageEncrypt}, true)
	require.NoError(t, validate.Extractable(extractable))

	sealed := mustKey(t, key.TypeSecret, []key.Usage{key.UsageEncrypt}, false)
	err := validate.Extractable(sealed)
	require.True(t, errors.Is(err, webcryptoerr.ErrInvalidAccess))
}

func TestFormat(t *testing.T) {
	require.NoError(t, validate.Format(key.FormatRaw, []byte("x")))
	require.Error(t, validate.Format(key.FormatRaw, &key.JSONWebKey{}))
	require.NoError(t, validate.Format(key.FormatJWK, &key.JSONWebKey{}))
	require.Error(t, validate.Format(key.FormatJWK, []byte("x")))
}

func TestProducedKey(t *testing.T) {
	k := mustKey(t, key.TypeSecret, []key.Usage{key.UsageEncrypt}, true)
	require.NoError(t, validate.ProducedKey(k))

	empty := &key.Key{Type: key.TypeSecret}
	err := validate.ProducedKey(empty)
	require.True(t, errors.Is(err, webcryptoerr.ErrSyntax))

	pub := &key.Key{Type: key.TypePublic}
	require.NoError(t, validate.ProducedKey(pub), "public keys may have empty usages")
}

func TestUsagesDedupAndReject(t *testing.T) {
	usages, err := validate.Usages([]string{"encrypt", "decrypt", "encrypt"})
	require.NoError(t, err)
	require.ElementsMatch(t, []key.Usage{key.UsageEncrypt, key.UsageDecrypt}, usages)

	_, err = validate.Usages([]string{"encrypt", "frobnicate"})
	require.True(t, errors.Is(err, webcryptoerr.ErrSyntax))
}
