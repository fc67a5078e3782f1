/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webcrypto_test

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/webkms-core/internal/webcryptolog/mocks"
	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/aesgcm"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

func TestEncryptWarnsOnNormalizeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLog := mocks.NewMockLogger(ctrl)
	mockLog.EXPECT().Warn(gomock.Any(), gomock.Any(), gomock.Any()).Times(1)

	reg := registry.New()
	aesgcm.Register(reg)

	s := webcrypto.New(reg, mockLog)

	_, err := await(t, s.Encrypt("NOT-REGISTERED", &key.Key{}, []byte("x")))
	require.Error(t, err)
}

func TestEncryptLogsDebugOnSuccess(t *testing.T) {
	reg := registry.New()
	aesgcm.Register(reg)

	setup := webcrypto.New(reg, nil)

	produced, err := await(t, setup.GenerateKey(map[string]interface{}{"name": "AES-GCM", "length": 128},
		true, []key.Usage{key.UsageEncrypt}))
	require.NoError(t, err)

	k := produced.(*key.Key)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLog := mocks.NewMockLogger(ctrl)
	mockLog.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).Times(1)

	s := webcrypto.New(reg, mockLog)

	_, err = await(t, s.Encrypt(map[string]interface{}{"name": "AES-GCM", "iv": make([]byte, 12)}, k, []byte("x")))
	require.NoError(t, err)
}
