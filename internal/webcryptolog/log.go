/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webcryptolog provides the minimal leveled logger the dispatcher
// uses to record operation/algorithm/outcome triples. Implementations
// must never be passed key material, plaintext, or ciphertext bytes.
package webcryptolog

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the leveled logging surface the dispatcher depends on. Its
// method set is a subset of hclog.Logger's, so New's hclog.Logger value
// satisfies it directly.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

// New returns the default Logger: an hclog.Logger named "webcrypto",
// writing structured key-value output to stderr at Info level.
func New() Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "webcrypto",
		Level:  hclog.Info,
		Output: os.Stderr,
	})
}

// NopLogger discards everything. Useful as a default in tests that do
// not assert on log output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

var _ Logger = hclog.L()
var _ Logger = NopLogger{}
