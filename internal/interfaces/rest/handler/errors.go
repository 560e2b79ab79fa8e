package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/course-certificate/internal/certificate"
	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/eligibility"
	"github.com/pot-code/course-certificate/internal/infrastructure/logging"
	"github.com/pot-code/course-certificate/internal/infrastructure/validate"
	"go.uber.org/zap"
)

// RESTStandardError response error
type RESTStandardError struct {
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func NewRESTStandardError(code int, detail string) *RESTStandardError {
	return &RESTStandardError{
		Code:   code,
		Title:  http.StatusText(code),
		Detail: detail,
	}
}

func (re RESTStandardError) Error() string {
	return re.Detail
}

func (re RESTStandardError) SetTraceID(traceID string) RESTStandardError {
	re.TraceID = traceID
	return re
}

// RESTValidationError standard validation error
type RESTValidationError struct {
	RESTStandardError
	InvalidParams []*validate.FieldError `json:"invalid_params"`
}

func NewRESTValidationError(code int, detail string, internal []*validate.FieldError) *RESTValidationError {
	return &RESTValidationError{
		RESTStandardError: RESTStandardError{
			Code:   code,
			Title:  http.StatusText(code),
			Detail: detail,
		},
		InvalidParams: internal,
	}
}

func (rve RESTValidationError) Error() string {
	return rve.Detail
}

func (rve RESTValidationError) SetTraceID(traceID string) RESTValidationError {
	rve.RESTStandardError.TraceID = traceID
	return rve
}

// RESTNotEligibleError certificate requested too early, tells the client what is missing
type RESTNotEligibleError struct {
	RESTStandardError
	Eligibility eligibility.Verdict `json:"eligibility"`
}

// RetryableDetail shown instead of the underlying error for 503 responses
const RetryableDetail = "temporarily unavailable, please retry"

func traceID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// respondError writes the response for errors the client can act on,
// anything else is returned for the ErrorHandling middleware
func respondError(c echo.Context, err error) error {
	var (
		ve          *domain.ValidationError
		notEligible *certificate.NotEligibleError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest,
			NewRESTValidationError(http.StatusBadRequest, "Failed to validate params",
				[]*validate.FieldError{validate.NewFieldError(ve.Field, ve.Reason)}).SetTraceID(traceID(c)))
	case errors.As(err, &notEligible):
		return c.JSON(http.StatusConflict, RESTNotEligibleError{
			RESTStandardError: NewRESTStandardError(http.StatusConflict, domain.ErrNotEligible.Error()).SetTraceID(traceID(c)),
			Eligibility:       notEligible.Verdict,
		})
	case errors.Is(err, domain.ErrCertificateNotFound):
		return c.JSON(http.StatusNotFound,
			NewRESTStandardError(http.StatusNotFound, err.Error()).SetTraceID(traceID(c)))
	case domain.Retryable(err), errors.Is(err, context.DeadlineExceeded):
		logging.ExtractLoggerFromContext(c.Request().Context()).Error("request failed, retryable",
			zap.String("trace.id", traceID(c)), zap.Error(err))
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable,
			NewRESTStandardError(http.StatusServiceUnavailable, RetryableDetail).SetTraceID(traceID(c)))
	}
	return err
}

func bindingError(c echo.Context, errs []*validate.FieldError) error {
	return c.JSON(http.StatusBadRequest,
		NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", errs).SetTraceID(traceID(c)))
}
