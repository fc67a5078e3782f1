/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Command webcryptoctl exposes the dispatch core over a tiny local HTTP
// surface for manual smoke-testing. It is intentionally thin: each
// handler decodes a JSON request into the dispatcher's own Go types and
// calls Subtle directly, never holding key state across requests.
package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/trustbloc/webkms-core/internal/webcryptolog"
	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/aesgcm"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/aeskw"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/ecdsa"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/hkdf"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/hmac"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/rsaoaep"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/rsassa"
	_ "github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/sha"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
)

func main() {
	addr := flag.String("addr", ":8089", "address to listen on")
	flag.Parse()

	log := webcryptolog.New()
	subtle := webcrypto.New(nil, log)

	router := mux.NewRouter()
	router.HandleFunc("/digest", digestHandler(subtle, log)).Methods(http.MethodPost)
	router.HandleFunc("/generate-key", generateKeyHandler(subtle, log)).Methods(http.MethodPost)
	router.HandleFunc("/encrypt", encryptHandler(subtle, log)).Methods(http.MethodPost)
	router.HandleFunc("/decrypt", decryptHandler(subtle, log)).Methods(http.MethodPost)

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("webcryptoctl listening", "addr", *addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server stopped", "error", err)
	}
}

// digestRequest/digestResponse and the handlers below pass algorithm
// descriptors and octet members straight through as the JSON types
// normalize.Normalize already accepts (a bare string algorithm name, or
// a base64url-encoded string for byte members), so no intermediate
// decoding step is needed here.

type digestRequest struct {
	Algorithm interface{} `json:"algorithm"`
	Data      string      `json:"data"`
}

type digestResponse struct {
	Digest string `json:"digest"`
}

func digestHandler(s *webcrypto.Subtle, log webcryptolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req digestRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		data, err := decodeOctets(req.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := s.Digest(req.Algorithm, data).Await(r.Context())
		if err != nil {
			log.Warn("digest failed", "error", err)
			writeError(w, http.StatusBadRequest, err)

			return
		}

		writeJSON(w, http.StatusOK, digestResponse{Digest: encodeOctets(result.([]byte))})
	}
}

type generateKeyRequest struct {
	Algorithm   interface{} `json:"algorithm"`
	Extractable bool        `json:"extractable"`
	Usages      []string    `json:"usages"`
	Format      string      `json:"format"`
}

type generateKeyResponse struct {
	Key interface{} `json:"key"`
}

func generateKeyHandler(s *webcrypto.Subtle, log webcryptolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateKeyRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		produced, err := s.GenerateKey(req.Algorithm, req.Extractable, toUsages(req.Usages)).Await(r.Context())
		if err != nil {
			log.Warn("generateKey failed", "error", err)
			writeError(w, http.StatusBadRequest, err)

			return
		}

		// Asymmetric algorithms produce a *key.Pair; this endpoint only
		// demonstrates the single-key symmetric path.
		k, ok := produced.(*key.Key)
		if !ok {
			writeError(w, http.StatusBadRequest, errNotASecretKey)
			return
		}

		format := key.Format(req.Format)
		if format == "" {
			format = key.FormatRaw
		}

		material, err := s.ExportKey(format, k).Await(r.Context())
		if err != nil {
			log.Warn("exportKey failed", "error", err)
			writeError(w, http.StatusBadRequest, err)

			return
		}

		writeJSON(w, http.StatusOK, generateKeyResponse{Key: materialToJSON(format, material)})
	}
}

type cipherRequest struct {
	Algorithm interface{} `json:"algorithm"`
	Key       string      `json:"key"`
	Usages    []string    `json:"usages"`
	Data      string      `json:"data"`
}

type cipherResponse struct {
	Data string `json:"data"`
}

func encryptHandler(s *webcrypto.Subtle, log webcryptolog.Logger) http.HandlerFunc {
	return cipherHandler(s, log, s.Encrypt, []key.Usage{key.UsageEncrypt})
}

func decryptHandler(s *webcrypto.Subtle, log webcryptolog.Logger) http.HandlerFunc {
	return cipherHandler(s, log, s.Decrypt, []key.Usage{key.UsageDecrypt})
}

// cipherHandler imports the caller's raw key material fresh on every
// request and delegates to op (Encrypt or Decrypt); the CLI holds no
// key state across requests.
func cipherHandler(s *webcrypto.Subtle, log webcryptolog.Logger,
	op func(algorithm interface{}, k *key.Key, data []byte) *webcrypto.Result, defaultUsages []key.Usage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cipherRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		keyBytes, err := decodeOctets(req.Key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		usages := defaultUsages
		if len(req.Usages) > 0 {
			usages = toUsages(req.Usages)
		}

		produced, err := s.ImportKey(key.FormatRaw, keyBytes, req.Algorithm, false, usages).Await(r.Context())
		if err != nil {
			log.Warn("importKey failed", "error", err)
			writeError(w, http.StatusBadRequest, err)

			return
		}

		k, ok := produced.(*key.Key)
		if !ok {
			writeError(w, http.StatusBadRequest, errNotASecretKey)
			return
		}

		data, err := decodeOctets(req.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := op(req.Algorithm, k, data).Await(r.Context())
		if err != nil {
			log.Warn("cipher op failed", "error", err)
			writeError(w, http.StatusBadRequest, err)

			return
		}

		writeJSON(w, http.StatusOK, cipherResponse{Data: encodeOctets(result.([]byte))})
	}
}

func toUsages(raw []string) []key.Usage {
	usages := make([]key.Usage, len(raw))
	for i, u := range raw {
		usages[i] = key.Usage(u)
	}

	return usages
}

func materialToJSON(format key.Format, material interface{}) interface{} {
	if format == key.FormatJWK {
		return material
	}

	b, ok := material.([]byte)
	if !ok {
		return material
	}

	return encodeOctets(b)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errNotASecretKey = errors.New("webcryptoctl: operation did not produce a single key")

func decodeOctets(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func encodeOctets(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
