// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package web

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the body of every API reply.
type Response struct {
	Status   string        `json:"status"`
	Message  string        `json:"message"`
	User     *auth.Profile `json:"user,omitempty"`
	Token    string        `json:"token,omitempty"`
	Redirect string        `json:"redirect,omitempty"`
}

const (
	msgBadRequest    = "No data received"
	msgMissingFields = "Email and password are required"
)

func success(message string) Response {
	return Response{Status: StatusSuccess, Message: message}
}

func writeJSON(w http.ResponseWriter, code int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(body)
}

// writeError reduces err to the error taxonomy. Internal details never reach
// the body; they are logged by the caller's access log.
func writeError(w http.ResponseWriter, err error) {
	if wait := auth.RetryAfter(err); wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
	writeJSON(w, httpStatus(err), Response{Status: StatusError, Message: auth.Message(err)})
}

func httpStatus(err error) int {
	if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == "AUTH_ACCOUNT_LOCKED" {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, auth.ErrDuplicateEmail) {
		return http.StatusConflict
	}
	switch auth.KindOf(err) {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindAuth, auth.KindNotFound:
		return http.StatusUnauthorized
	case auth.KindProvider:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. Bodies above 64 KiB are rejected.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusError, Message: msgBadRequest})
		return false
	}
	return true
}
