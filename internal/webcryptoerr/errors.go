/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webcryptoerr declares the typed error taxonomy shared by every
// component of the dispatch core. Call sites wrap one of the sentinel
// errors with fmt.Errorf("%w: ...") so errors.Is keeps working across
// the dispatcher's deferred-result boundary.
package webcryptoerr

import "errors"

var (
	// ErrNotSupported is raised when an algorithm name is not registered
	// for the requested operation, or a resolved algorithm module is
	// missing the capability the operation needs.
	ErrNotSupported = errors.New("webcrypto: not supported")

	// ErrInvalidAccess is raised when the algorithm name carried by a
	// normalized parameter record does not match the key's own
	// algorithm, when a required usage is missing from the key, or when
	// a non-extractable key is used where extraction is required.
	ErrInvalidAccess = errors.New("webcrypto: invalid access")

	// ErrSyntax is raised for a malformed algorithm descriptor, an
	// unknown usage token, or a produced secret/private key with an
	// empty usage set.
	ErrSyntax = errors.New("webcrypto: syntax")

	// ErrData is raised when key material cannot be parsed in its
	// declared format.
	ErrData = errors.New("webcrypto: data")

	// ErrType is raised when the supplied key material's shape does not
	// match the declared format (octet buffer vs. structured JWK).
	ErrType = errors.New("webcrypto: type")

	// ErrOperation is raised for an algorithm-internal failure, such as
	// an authentication tag mismatch or bad padding. verify resolves
	// false for an invalid signature instead of returning ErrOperation.
	ErrOperation = errors.New("webcrypto: operation")
)
