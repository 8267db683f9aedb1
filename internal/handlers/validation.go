package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	appErrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
	appValidator "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/validator"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		writeError(c, err)
		return false
	}

	return true
}

// writeError translates service errors into the response envelope. Validation
// failures carry per-field details and duplicate check-ins carry the original
// admission time.
func writeError(c *gin.Context, err error) {
	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) {
		response.ErrorWithDetails(c, appErrors.NewBadRequest(formatValidationError(ve)), ve)
		return
	}

	var dup *services.AlreadyCheckedInError
	if errors.As(err, &dup) {
		response.ErrorWithDetails(c, appErrors.ErrAlreadyCheckedIn, gin.H{
			"checked_in_at": dup.CheckedInAt,
			"holder":        dup.Holder,
		})
		return
	}

	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		logger.WithModule("http").Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	response.Error(c, err)
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
			case "phone":
				messages = append(messages, fmt.Sprintf("%s must be a valid phone number", field))
			case "slug":
				messages = append(messages, fmt.Sprintf("%s may only contain lowercase letters, digits and dashes", field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", field, failure.Param))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", field, failure.Param))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, failure.Param))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolQuery(c *gin.Context, key string, fallback bool) bool {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// pageParams reads page and per_page, clamped to the listing limits.
func pageParams(c *gin.Context) (int, int) {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := parseIntQuery(c, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
