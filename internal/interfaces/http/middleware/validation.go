package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/interfaces/http/dto"
)

var setupOnce sync.Once

// SetupValidator registers the nursery tags on gin's validator and makes
// error field names follow the json tags. It is safe to call repeatedly.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
			}
			return name
		})
		_ = v.RegisterValidation("lifecycle_status", func(fl validator.FieldLevel) bool {
			_, err := stock.ParseStatus(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("plot_type", func(fl validator.FieldLevel) bool {
			return stock.PlotType(fl.Field().String()).IsValid()
		})
	})
}

// ValidationDetails converts binding errors into per-field details. Errors
// that are not field validations, such as malformed JSON, yield nil.
func ValidationDetails(err error) []dto.ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}
	return details
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "lifecycle_status":
		return "Unknown lifecycle status, must be one of: " + statusList()
	case "plot_type":
		return "Must be one of: field, container, greenhouse, holding"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	default:
		return "Invalid value"
	}
}

func statusList() string {
	all := stock.AllStatuses()
	names := make([]string, len(all))
	for i, st := range all {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
