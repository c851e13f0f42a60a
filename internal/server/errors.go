package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	ledgerdomain "github.com/notalys/notalys/internal/ledger/domain"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErrs *ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErrs.Errors,
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case isBadRequestError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, taxdomain.ErrNotFound) ||
		errors.Is(err, baremedomain.ErrNotFound) ||
		errors.Is(err, templatedomain.ErrNotFound) ||
		errors.Is(err, invoicedomain.ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

// Conflicts are state-machine violations: the request is well-formed but
// the aggregate's current state forbids it.
func isConflictError(err error) bool {
	return errors.Is(err, taxdomain.ErrReferenced) ||
		errors.Is(err, templatedomain.ErrReferenced) ||
		errors.Is(err, invoicedomain.ErrInvoiceCancelled) ||
		errors.Is(err, invoicedomain.ErrInvoicePaid) ||
		errors.Is(err, invoicedomain.ErrNotCancellable) ||
		errors.Is(err, invoicedomain.ErrNotDraft)
}

// Unprocessable errors are configuration faults: the stored template,
// barème or ledger derivation is broken, not the request.
func isUnprocessableError(err error) bool {
	return errors.Is(err, feedomain.ErrConfiguration) ||
		errors.Is(err, baremedomain.ErrMalformedScale) ||
		errors.Is(err, ledgerdomain.ErrUnbalancedEntry) ||
		errors.Is(err, ledgerdomain.ErrInvalidEntryLines) ||
		errors.Is(err, ledgerdomain.ErrInvalidLineAmount) ||
		errors.Is(err, ledgerdomain.ErrInvalidAccount)
}

func isBadRequestError(err error) bool {
	return errors.Is(err, taxdomain.ErrInvalidID) ||
		errors.Is(err, taxdomain.ErrInvalidTaxCode) ||
		errors.Is(err, taxdomain.ErrInvalidTaxRate) ||
		errors.Is(err, taxdomain.ErrInvalidTaxBasis) ||
		errors.Is(err, baremedomain.ErrInvalidID) ||
		errors.Is(err, baremedomain.ErrInvalidCode) ||
		errors.Is(err, templatedomain.ErrInvalidID) ||
		errors.Is(err, templatedomain.ErrInvalidCode) ||
		errors.Is(err, templatedomain.ErrInvalidKind) ||
		errors.Is(err, templatedomain.ErrInvalidValue) ||
		errors.Is(err, templatedomain.ErrInvalidCategory) ||
		errors.Is(err, templatedomain.ErrInvalidScale) ||
		errors.Is(err, feedomain.ErrMissingInput) ||
		errors.Is(err, feedomain.ErrInvalidContext) ||
		errors.Is(err, invoicedomain.ErrInvalidID) ||
		errors.Is(err, invoicedomain.ErrInvalidPayment) ||
		errors.Is(err, invoicedomain.ErrEmptyEvaluation)
}

// classifyErrorForLog tags the request log with the mapped error type and
// the domain sentinel code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)

	code := ""
	if err != nil && payload.Type != "internal_error" {
		code = err.Error()
	}
	return payload.Type, code
}
