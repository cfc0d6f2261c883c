package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as a number so gte/gt tags work on prices.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// fieldPath turns "CreateSaleRequest.items[0].quantity" into "items.0.quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return indexPattern.ReplaceAllString(ns, ".$1")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must contain at least %s item(s)", fe.Param())
	case "max":
		return fmt.Sprintf("May not be greater than %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "eqfield":
		return "Confirmation does not match"
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "Must be a date formatted as " + fe.Param()
	default:
		return "Is invalid"
	}
}

// bindAndValidate binds the JSON body and runs the validate tags. On failure
// the response has been written and the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(c, err)
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	utils.ValidationFailed(c, fields)
	return false
}

// respondError maps service errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	var verr *utils.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.ValidationFailed(c, verr.Fields)
	case errors.Is(err, utils.ErrIncorrectPassword):
		utils.ValidationFailed(c, map[string]string{"current_password": "Current password is incorrect"})
	case errors.Is(err, utils.ErrSaleAlreadyCanceled):
		utils.ValidationFailed(c, map[string]string{"status": "Sale is already cancelled"})
	case errors.Is(err, utils.ErrImageNotOwned):
		utils.Error(c, http.StatusNotFound, "IMAGE_NOT_OWNED", "Image does not belong to this product")
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, utils.ErrUnauthenticated):
		utils.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Access token required")
	case errors.Is(err, utils.ErrInvalidToken):
		utils.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")

		info := &utils.ErrorInfo{Code: "INTERNAL_ERROR", Message: "Internal server error"}
		if debugErrors {
			info.Detail = err.Error()
		}
		utils.ErrorWithInfo(c, http.StatusInternalServerError, "Internal server error", info)
	}
}

// debugErrors exposes error chains in 500 responses. Set from APP_DEBUG at boot.
var debugErrors bool

// SetDebug toggles error detail in 500 responses.
func SetDebug(enabled bool) {
	debugErrors = enabled
}

// paramID parses a positive integer path parameter. It writes a 404 and
// returns false when the value is not an id.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return 0, false
	}
	return id, true
}

// pageParams reads page and limit query values clamped to the repository bounds.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = repository.DefaultLimit
	}
	if limit > repository.MaxLimit {
		limit = repository.MaxLimit
	}
	return page, limit
}

// boolQuery parses an optional boolean query value.
func boolQuery(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}
