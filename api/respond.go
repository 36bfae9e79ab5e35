package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/haven/internal/middleware"
	"github.com/Domenick1991/haven/internal/service/failure"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				if name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	}
}

type errorResponse struct {
	Error     string   `json:"error"`
	Category  string   `json:"category"`
	Problems  []string `json:"problems,omitempty"`
	Retryable bool     `json:"retryable"`
	RequestID string   `json:"request_id,omitempty"`
}

func statusFor(c failure.Classification) int {
	switch c.Category {
	case failure.CategoryValidation:
		return http.StatusBadRequest
	case failure.CategoryNotFound:
		return http.StatusNotFound
	case failure.CategoryConstraint:
		return http.StatusConflict
	case failure.CategoryRateLimited:
		return http.StatusTooManyRequests
	case failure.CategoryPayment:
		return http.StatusBadRequest
	case failure.CategoryNetwork:
		return http.StatusBadGateway
	case failure.CategoryAuth:
		return http.StatusUnauthorized
	case failure.CategoryCancelled:
		return http.StatusOK
	}
	if c.Retryable {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError renders the safe message for err. The raw error only goes to
// the server log.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	class := failure.Classify(err)
	status := statusFor(class)

	attrs := []any{
		"request_id", middleware.GetRequestID(c),
		"path", c.FullPath(),
		"category", string(class.Category),
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed", attrs...)
	} else {
		logger.InfoContext(c.Request.Context(), "request rejected", attrs...)
	}

	if class.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(class.RetryAfter.Seconds()))))
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     class.Message,
		Category:  string(class.Category),
		Problems:  class.Problems,
		Retryable: class.Retryable,
		RequestID: middleware.GetRequestID(c),
	})
}

const msgBadBody = "request body is not valid JSON for this endpoint"

func badRequest(c *gin.Context, problems ...string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:     "Please correct the highlighted fields.",
		Category:  string(failure.CategoryValidation),
		Problems:  problems,
		RequestID: middleware.GetRequestID(c),
	})
}

func optionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// bindProblems lists every binding violation by field name.
func bindProblems(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{msgBadBody}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "datetime":
			problems = append(problems, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field()))
		case "min":
			problems = append(problems, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return problems
}
