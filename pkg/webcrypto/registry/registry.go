/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package registry implements the algorithm registry of component B:
// a two-level operation -> algorithm-name -> Entry map, matched
// case-insensitively, guarded by a sync.RWMutex. Each algorithm module
// populates the default registry from its own init().
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
)

// Operation is one of the members of the operation vocabulary in spec §3.
type Operation string

// Recognized operations.
const (
	OpEncrypt      Operation = "encrypt"
	OpDecrypt      Operation = "decrypt"
	OpSign         Operation = "sign"
	OpVerify       Operation = "verify"
	OpDigest       Operation = "digest"
	OpGenerateKey  Operation = "generateKey"
	OpImportKey    Operation = "importKey"
	OpExportKey    Operation = "exportKey"
	OpDeriveBits   Operation = "deriveBits"
	OpDeriveKey    Operation = "deriveKey"
	OpWrapKey      Operation = "wrapKey"
	OpUnwrapKey    Operation = "unwrapKey"
	OpGetKeyLength Operation = "get key length"
)

// Params is the normalized, operation-specific parameter record an
// algorithm module receives. Concrete types live in package normalize;
// registry only needs the marker so Module's capability signatures can
// name it without importing normalize (which itself needs to import
// registry to perform lookups, so the dependency runs normalize ->
// registry, never the reverse).
type Params interface {
	AlgorithmName() string
}

// Module is the capability set an algorithm implementation exposes.
// Every field is optional; dispatch probes it with a nil check rather
// than dynamic member lookup (see spec §9's design note on polymorphic
// algorithm modules).
type Module struct {
	Encrypt      func(p Params, k *key.Key, data []byte) ([]byte, error)
	Decrypt      func(p Params, k *key.Key, data []byte) ([]byte, error)
	Sign         func(k *key.Key, data []byte) ([]byte, error)
	Verify       func(k *key.Key, sig, data []byte) (bool, error)
	Digest       func(p Params, data []byte) ([]byte, error)
	GenerateKey  func(p Params, extractable bool, usages []key.Usage) (interface{}, error)
	ImportKey    func(format key.Format, material interface{}, p Params, extractable bool, usages []key.Usage) (*key.Key, error)
	ExportKey    func(format key.Format, k *key.Key) (interface{}, error)
	DeriveBits   func(p Params, k *key.Key, length int) ([]byte, error)
	WrapKey      func(p Params, wrappingKey *key.Key, octets []byte) ([]byte, error)
	UnwrapKey    func(p Params, unwrappingKey *key.Key, wrapped []byte) ([]byte, error)
	GetKeyLength func(p Params) (int, error)
}

// Schema describes which members a descriptor must/may carry for one
// (operation, algorithm) pair. Registry only stores it; Normalize does
// not read it, since its per-algorithm schemas are built into its own
// code.
type Schema struct {
	Required []string
	Optional []string
}

// Entry is a registered (operation, algorithm) pairing: its parameter
// schema and its implementation reference.
type Entry struct {
	Name   string // canonical spelling
	Schema Schema
	Impl   Module
}

// Registry is a read-after-init, two-level algorithm map.
type Registry struct {
	mu      sync.RWMutex
	entries map[Operation]map[string]*Entry // keyed by lower-cased name
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[Operation]map[string]*Entry)}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry algorithm modules register
// themselves into from their init() functions.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = New() })
	return defaultReg
}

// Register adds name -> entry under op. Registering the same
// (op, name) pair twice overwrites the previous entry; this mirrors
// Go's own init()-order-dependent package registration idiom rather
// than treating re-registration as an error, since multiple algorithm
// modules may legitimately share the same canonical name under
// different operations (e.g. "AES-GCM" under both encrypt and wrapKey).
func (r *Registry) Register(op Operation, name string, entry Entry) {
	entry.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[op] == nil {
		r.entries[op] = make(map[string]*Entry)
	}

	e := entry
	r.entries[op][strings.ToLower(name)] = &e
}

// Lookup returns the entry registered for (op, name), matched
// case-insensitively. The returned Entry.Name carries the canonical
// spelling used at registration time.
func (r *Registry) Lookup(op Operation, name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName := r.entries[op]
	if byName == nil {
		return nil, fmt.Errorf("%w: no algorithms registered for operation %q", webcryptoerr.ErrNotSupported, op)
	}

	entry, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: algorithm %q not registered for operation %q",
			webcryptoerr.ErrNotSupported, name, op)
	}

	return entry, nil
}

// Schema is a convenience accessor over Lookup.
func (r *Registry) Schema(op Operation, name string) (Schema, error) {
	e, err := r.Lookup(op, name)
	if err != nil {
		return Schema{}, err
	}

	return e.Schema, nil
}

// Impl is a convenience accessor over Lookup for the dispatcher's use.
func (r *Registry) Impl(op Operation, name string) (Module, error) {
	e, err := r.Lookup(op, name)
	if err != nil {
		return Module{}, err
	}

	return e.Impl, nil
}
