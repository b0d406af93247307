package server

import (
	"context"
	"errors"
	"net/http"

	"facilityops/internal/store"
)

// kinder is satisfied by domain errors that carry a classification kind.
type kinder interface {
	Kind() string
}

// kindToStatus maps error classification kinds to HTTP status codes.
var kindToStatus = map[string]int{
	"validation":   http.StatusBadRequest,
	"not_found":    http.StatusNotFound,
	"collaborator": http.StatusInternalServerError,
	"notification": http.StatusBadGateway,
	"timeout":      http.StatusGatewayTimeout,
	"canceled":     http.StatusRequestTimeout,
}

// errorKind returns the kind of an error.
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[errorKind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
