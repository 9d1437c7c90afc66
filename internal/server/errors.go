package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	chartdomain "github.com/siderealabs/astroledger/internal/chart/domain"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
	purchasedomain "github.com/siderealabs/astroledger/internal/purchase/domain"
	reportdomain "github.com/siderealabs/astroledger/internal/report/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Title   string            `json:"title,omitempty"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if errors.Is(err, creditdomain.ErrInsufficientCredit) {
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credit",
			Message: "no unused report credit for this category",
			Action:  "paywall",
		}
	}

	if msg, ok := purchasedomain.MessageFor(err); ok {
		return purchaseErrorStatus(err), errorPayload{
			Type:    "purchase_error",
			Title:   msg.Title,
			Message: msg.Description,
			Action:  msg.Action,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, creditdomain.ErrConsumeContention):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "credit consumption conflicted with a concurrent request, try again",
			Action:  "retry",
		}
	case errors.Is(err, chartdomain.ErrEphemerisUnavailable),
		errors.Is(err, reportdomain.ErrGenerationFailed),
		errors.Is(err, reportdomain.ErrContentOutOfRange):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "report could not be generated, your credit was not used",
			Action:  "retry",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func purchaseErrorStatus(err error) int {
	switch {
	case errors.Is(err, purchasedomain.ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, purchasedomain.ErrProductUnavailable):
		return http.StatusNotFound
	case errors.Is(err, purchasedomain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, purchasedomain.ErrVerificationFailed),
		errors.Is(err, purchasedomain.ErrVerificationExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, purchasedomain.ErrRestoreFailed):
		return http.StatusBadGateway
	default:
		// in-flight, credit still available
		return http.StatusConflict
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, profiledomain.ErrInvalidName),
		errors.Is(err, profiledomain.ErrInvalidBirthDate),
		errors.Is(err, profiledomain.ErrInvalidBirthTime),
		errors.Is(err, profiledomain.ErrInvalidLocation),
		errors.Is(err, profiledomain.ErrInvalidID),
		errors.Is(err, creditdomain.ErrInvalidCategory),
		errors.Is(err, creditdomain.ErrInvalidProfile),
		errors.Is(err, creditdomain.ErrInvalidTransaction),
		errors.Is(err, creditdomain.ErrInvalidQuantity),
		errors.Is(err, reportdomain.ErrInvalidLanguage),
		errors.Is(err, reportdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, profiledomain.ErrNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, creditdomain.ErrRecordNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
