package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps err to a status and writes it. Server errors are
// logged with the request logger and their text is not exposed.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *usecase.DuplicateBillError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, struct {
			dto.ErrorResponse
			Duplicate *dto.DuplicateCheckResponse `json:"duplicate"`
		}{
			ErrorResponse: dto.ErrorResponse{Error: "duplicate_bill", Message: err.Error()},
			Duplicate:     dto.DuplicateCheckFromDomain(dup.Result),
		})
		return
	}

	var verr *dto.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "validation_failed", Message: "request validation failed", Fields: verr.Fields})
		return
	}

	status := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, errorCode(status), "internal server error")
		return
	}
	writeError(w, status, errorCode(status), err.Error())
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrJournalNotFound),
		errors.Is(err, domain.ErrPeriodNotFound),
		errors.Is(err, domain.ErrBillNotFound),
		errors.Is(err, domain.ErrInvoiceNotFound),
		errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrMissingOrganization),
		errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, domain.ErrInvalidAccountCode),
		errors.Is(err, domain.ErrInvalidJournalSource),
		errors.Is(err, domain.ErrTooFewLines),
		errors.Is(err, domain.ErrInvalidJournalLine),
		errors.Is(err, domain.ErrInvalidPeriodRange),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrNoLineItems),
		errors.Is(err, domain.ErrInvalidLineItem),
		errors.Is(err, domain.ErrInvalidTax),
		errors.Is(err, domain.ErrInvalidPrefix),
		errors.Is(err, domain.ErrMissingField),
		errors.Is(err, domain.ErrUnknownSequenceKind):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrDuplicateAccountCode),
		errors.Is(err, domain.ErrSystemAccount),
		errors.Is(err, domain.ErrAccountInUse),
		errors.Is(err, domain.ErrJournalNotDraft),
		errors.Is(err, domain.ErrJournalAlreadyExists),
		errors.Is(err, domain.ErrPeriodClosed),
		errors.Is(err, domain.ErrPeriodOverlap),
		errors.Is(err, domain.ErrDocumentNotEditable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateBill):
		return http.StatusConflict

	case errors.Is(err, domain.ErrUnbalancedJournal),
		errors.Is(err, domain.ErrOverpayment),
		errors.Is(err, domain.ErrManualJournalNotAllowed),
		errors.Is(err, domain.ErrVendorNotFound),
		errors.Is(err, domain.ErrClientNotFound),
		errors.Is(err, domain.ErrCurrencyNotFound),
		errors.Is(err, domain.ErrPurchaseOrderNotFound):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	}
	return "internal_error"
}

// decodeRequest reads a JSON body into req and validates it.
func decodeRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	if err := dto.Validate(req); err != nil {
		writeDomainError(w, r, err)
		return false
	}
	return true
}

// scopeOf returns the request scope. A missing scope is rejected by the use
// cases with domain.ErrMissingOrganization.
func scopeOf(r *http.Request) domain.Scope {
	scope, _ := middleware.ScopeFromContext(r.Context())
	return scope
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// pagination reads limit and offset, clamped to the allowed range.
func pagination(r *http.Request) (int, int) {
	limit, offset, _ := domain.ValidatePagination(parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))
	return limit, offset
}

// parseDateQuery parses an optional date query parameter.
func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	d, err := dto.ParseDate(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &d.Time, nil
}

// parseDocumentStatuses parses a comma separated status filter.
func parseDocumentStatuses(r *http.Request) []domain.DocumentStatus {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]domain.DocumentStatus, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			statuses = append(statuses, domain.DocumentStatus(p))
		}
	}
	return statuses
}

func idParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// ledgerStatus is the response status of an explicit posting request.
func ledgerStatus(p *domain.LedgerPosting) int {
	switch {
	case !p.Failed():
		return http.StatusOK
	case p.Retryable:
		return http.StatusServiceUnavailable
	}
	return http.StatusUnprocessableEntity
}
