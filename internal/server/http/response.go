package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/router"
)

// envelope is the response body of every read endpoint.
type envelope struct {
	Data       any                `json:"data"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
	Source     domain.Store       `json:"source,omitempty"`
	Route      *router.Route      `json:"route,omitempty"`
}

// errorResponse is the body of every error.
type errorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Result any    `json:"result,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData writes a routed read result.
func writeData(w http.ResponseWriter, data any, route router.Route) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Source: route.Store, Route: &route})
}

// writePage writes a routed, paginated read result.
func writePage(w http.ResponseWriter, res *domain.SearchResult, page domain.PageRequest, route router.Route) {
	pagination := domain.NewPagination(page, res.Total)
	papers := res.Papers
	if papers == nil {
		papers = []domain.Paper{}
	}
	writeJSON(w, http.StatusOK, envelope{Data: papers, Pagination: &pagination, Source: route.Store, Route: &route})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// writeDomainError maps an error to its status code. Internal details of
// store failures are not echoed to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var pwe *domain.PartialWriteError
	if errors.As(err, &pwe) {
		writeJSON(w, http.StatusMultiStatus, errorResponse{Error: "write accepted by one store only", Result: pwe.Result})
		return
	}

	var wfe *domain.WriteFailedError
	if errors.As(err, &wfe) {
		status, message := http.StatusConflict, "write rejected by both stores"
		if errors.Is(err, domain.ErrServiceUnavailable) {
			status, message = http.StatusServiceUnavailable, "write failed in both stores"
		}
		writeJSON(w, status, errorResponse{Error: message, Result: wfe.Result})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		var sue *domain.StoreUnavailableError
		if errors.As(err, &sue) {
			writeError(w, http.StatusServiceUnavailable, string(sue.Store)+" store unavailable")
		} else {
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		}
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, statusClientClosedRequest, "request cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// statusClientClosedRequest is the non-standard status for a caller that went away.
const statusClientClosedRequest = 499
