package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/openmat-booking/internal/middleware"
)

// requestTimeout bounds every repository call made while serving a request.
const requestTimeout = 5 * time.Second

// CachePurger drops cached GET responses after a write.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	v *validator.Validate
}

// NewValidator returns a validator whose errors name fields by their JSON key.
func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// validationMessage turns the first failing field into a client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid body"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, lowerFirst(fe.Param()))
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// bindValid decodes the JSON body into dst, applies prepare and validates the
// result.  It returns the client message on failure.
func bindValid(c echo.Context, dst any, prepare func()) (string, bool) {
	if err := c.Bind(dst); err != nil {
		return "invalid body", false
	}
	if prepare != nil {
		prepare()
	}
	if err := c.Validate(dst); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// internalError logs err and hides it from the client.
func internalError(c echo.Context, err error, msg string) error {
	logrus.WithError(err).WithFields(logrus.Fields{
		"request_id": c.Get(middleware.CtxRequestID),
		"path":       c.Path(),
	}).Error(msg)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// purge drops cached listings.  Failures only reach the log.
func purge(ctx context.Context, cache CachePurger) {
	if cache == nil {
		return
	}
	if err := cache.Purge(ctx); err != nil {
		logrus.WithError(err).Warn("response cache purge failed")
	}
}

func trimmed(s *string) {
	*s = strings.TrimSpace(*s)
}
