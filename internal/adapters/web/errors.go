package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"temple-vouchers/internal/app"
	"temple-vouchers/internal/core"
	"temple-vouchers/internal/logging"

	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	RowID     int               `json:"row_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, errorResponse{Error: message, Code: code}, status)
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, resp errorResponse, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp.RequestID = requestIDFromContext(r.Context())
	_ = json.NewEncoder(w).Encode(resp)
}

// writeAppError maps an application error to its HTTP status. Editing rule
// violations are 422, unknown sessions and rows 404, backend failures 502.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := app.ErrorCode(err)
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, app.ErrSessionNotFound),
		errors.Is(err, app.ErrUnknownLedger),
		errors.Is(err, core.ErrRowNotFound),
		errors.Is(err, core.ErrUnknownVoucher):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrSubmitInProgress):
		status = http.StatusConflict
	case errors.Is(err, app.ErrBackend):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads this
		status, code = 499, "CANCELED"
	case code == "INTERNAL_ERROR":
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeErrorResponse(w, r, errorResponse{Error: msg, Code: code, RowID: app.ErrorRow(err)}, status)
}

// writeValidationError reports DTO validation failures field by field.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: "invalid request", Code: "BAD_REQUEST"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Details[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
		}
	} else {
		resp.Error = err.Error()
	}
	writeErrorResponse(w, r, resp, http.StatusBadRequest)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
