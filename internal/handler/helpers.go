// Package handler implements the JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/praneethkvs/Memento/internal/greeting"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Clock supplies "today" in the configured zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today is midnight of the current date in c.Location.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return recurrence.StartOfDay(now().In(loc))
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a bounded JSON body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if model.IsValidation(err) {
			return err
		}
		return model.Invalid("body", "", fmt.Errorf("invalid JSON: %w", err))
	}
	return nil
}

// validateStruct runs the struct tags and reports the first failure as a
// *model.ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	var reason error
	switch fe.Tag() {
	case "required":
		reason = model.ErrRequired
	case "email":
		reason = errors.New("must be a valid email address")
	case "url", "http_url":
		reason = errors.New("must be a valid URL")
	case "min":
		reason = fmt.Errorf("must be at least %s characters", fe.Param())
	case "max":
		reason = fmt.Errorf("must be at most %s characters", fe.Param())
	default:
		reason = model.ErrUnsupportedValue
	}
	return model.Invalid(fe.Field(), "", reason)
}

// writeFailure maps err to a status code: validation failures are 400,
// generation failures 502, everything else 500 and logged.
func writeFailure(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
	case greeting.IsGenerationError(err):
		logger.Warn(action, "error", err)
		writeError(w, http.StatusBadGateway, "failed to generate message")
	default:
		logger.Error(action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
