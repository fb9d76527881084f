package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/sachero10/backend-tienda-ropa/internal/apierror"
	"github.com/sachero10/backend-tienda-ropa/internal/middleware"
	"github.com/sachero10/backend-tienda-ropa/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report the JSON name of the offending field.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// Returns false and writes a 400 if either step fails; the caller should
// return immediately.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, "invalid JSON: "+err.Error(), nil))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for the query string.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, "invalid query: "+err.Error(), nil))
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
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, err.Error(), nil))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// items[0].quantity rather than CreateSaleRequest.items[0].quantity
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[ns] = rule
	}
	c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
	return false
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, fmt.Sprintf("invalid %s", name), nil))
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps the service error taxonomy onto HTTP. When
// missingIsBadRequest is set a missing referenced record is reported as a
// 400 (it came from the request body) instead of a 404.
func writeServiceError(c *gin.Context, err error, missingIsBadRequest bool) {
	var (
		recon   *service.ReconciliationError
		shape   *service.MalformedBasketError
		stock   *service.InsufficientStockError
		storage *service.StorageError
	)
	switch {
	case errors.As(err, &recon):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, recon.Error(), recon))
	case errors.As(err, &shape):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, shape.Error(), shape))
	case errors.As(err, &stock) && stock.Missing:
		status := http.StatusNotFound
		if missingIsBadRequest {
			status = http.StatusBadRequest
		}
		c.JSON(status, apierror.WithCode(apierror.CodeNotFound, stock.Error(), stock))
	case errors.As(err, &stock):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeInsufficientStock, stock.Error(), stock))
	case errors.Is(err, service.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, err.Error(), nil))
	case errors.Is(err, service.ErrNotFound):
		status := http.StatusNotFound
		if missingIsBadRequest {
			status = http.StatusBadRequest
		}
		c.JSON(status, apierror.WithCode(apierror.CodeNotFound, err.Error(), nil))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeConflict, err.Error(), nil))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.New("Invalid credentials"))
	default:
		ev := log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Str("path", c.FullPath())
		if errors.As(err, &storage) {
			ev = ev.Str("op", storage.Op)
		}
		ev.Msg("storage failure")
		c.JSON(http.StatusInternalServerError, apierror.WithCode(apierror.CodeStorageFailure, "The operation could not be completed, please retry", nil))
	}
}
