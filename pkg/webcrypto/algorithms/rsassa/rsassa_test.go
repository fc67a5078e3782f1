/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rsassa_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/rsassa"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

func newTestSubtle(t *testing.T) *webcrypto.Subtle {
	t.Helper()

	reg := registry.New()
	rsassa.Register(reg)

	return webcrypto.New(reg, nil)
}

func await(t *testing.T, r *webcrypto.Result) (interface{}, error) {
	t.Helper()

	return r.Await(context.Background())
}

func generatePair(t *testing.T, s *webcrypto.Subtle, name string) *key.Pair {
	t.Helper()

	produced, err := await(t, s.GenerateKey(
		map[string]interface{}{"name": name, "modulusLength": 2048, "hash": "SHA-256"},
		true, []key.Usage{key.UsageSign, key.UsageVerify}))
	require.NoError(t, err)

	return produced.(*key.Pair)
}

func TestPKCS1SignVerifyRoundTrip(t *testing.T) {
	s := newTestSubtle(t)
	pair := generatePair(t, s, rsassa.NamePKCS1v15)

	sig, err := await(t, s.Sign(rsassa.NamePKCS1v15, pair.PrivateKey, []byte("message")))
	require.NoError(t, err)

	ok, err := await(t, s.Verify(rsassa.NamePKCS1v15, pair.PublicKey, sig.([]byte), []byte("message")))
	require.NoError(t, err)
	require.Equal(t, true, ok)

	badOk, err := await(t, s.Verify(rsassa.NamePKCS1v15, pair.PublicKey, sig.([]byte), []byte("tampered")))
	require.NoError(t, err)
	require.Equal(t, false, badOk)
}

func TestPSSSignVerifyRoundTrip(t *testing.T) {
	s := newTestSubtle(t)
	pair := generatePair(t, s, rsassa.NamePSS)

	sig, err := await(t, s.Sign(rsassa.NamePSS, pair.PrivateKey, []byte("message")))
	require.NoError(t, err)

	ok, err := await(t, s.Verify(rsassa.NamePSS, pair.PublicKey, sig.([]byte), []byte("message")))
	require.NoError(t, err)
	require.Equal(t, true, ok)
}

func TestExportImportSpkiPkcs8RoundTrip(t *testing.T) {
	s := newTestSubtle(t)
	pair := generatePair(t, s, rsassa.NamePKCS1v15)

	spki, err := await(t, s.ExportKey(key.FormatSPKI, pair.PublicKey))
	require.NoError(t, err)

	pkcs8, err := await(t, s.ExportKey(key.FormatPKCS8, pair.PrivateKey))
	require.NoError(t, err)

	importedPub, err := await(t, s.ImportKey(key.FormatSPKI, spki,
		map[string]interface{}{"name": rsassa.NamePKCS1v15, "hash": "SHA-256"}, true, []key.Usage{key.UsageVerify}))
	require.NoError(t, err)

	importedPriv, err := await(t, s.ImportKey(key.FormatPKCS8, pkcs8,
		map[string]interface{}{"name": rsassa.NamePKCS1v15, "hash": "SHA-256"}, true, []key.Usage{key.UsageSign}))
	require.NoError(t, err)

	sig, err := await(t, s.Sign(rsassa.NamePKCS1v15, importedPriv.(*key.Key), []byte("round trip")))
	require.NoError(t, err)

	ok, err := await(t, s.Verify(rsassa.NamePKCS1v15, importedPub.(*key.Key), sig.([]byte), []byte("round trip")))
	require.NoError(t, err)
	require.Equal(t, true, ok)
}

func TestExportImportJwkRoundTrip(t *testing.T) {
	s := newTestSubtle(t)
	pair := generatePair(t, s, rsassa.NamePSS)

	jwk, err := await(t, s.ExportKey(key.FormatJWK, pair.PrivateKey))
	require.NoError(t, err)

	imported, err := await(t, s.ImportKey(key.FormatJWK, jwk,
		map[string]interface{}{"name": rsassa.NamePSS, "hash": "SHA-256"}, true, []key.Usage{key.UsageSign}))
	require.NoError(t, err)

	sig, err := await(t, s.Sign(rsassa.NamePSS, imported.(*key.Key), []byte("jwk round trip")))
	require.NoError(t, err)

	ok, err := await(t, s.Verify(rsassa.NamePSS, pair.PublicKey, sig.([]byte), []byte("jwk round trip")))
	require.NoError(t, err)
	require.Equal(t, true, ok)
}
