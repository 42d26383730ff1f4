package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/security/audit"
	"github.com/elebur/VoteAPI/internal/security/middleware"
	"github.com/elebur/VoteAPI/internal/validation"
)

// MsgServerError is the body of every unexpected failure.
const MsgServerError = "A server error occurred."

var jsonResponse = middleware.JSONResponse

// writeError maps a service error onto its status code and body.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		berr *bodyError
		verr *domain.ValidationError
		cerr *domain.ConflictError
		nerr *domain.NotFoundError
		merr *domain.MalformedInputError
	)
	switch {
	case errors.As(err, &berr):
		jsonResponse(w, berr.status, berr.body)
	case errors.As(err, &verr):
		if verr.Message != "" {
			jsonResponse(w, http.StatusBadRequest, map[string]any{"details": verr.Message})
			return
		}
		jsonResponse(w, http.StatusBadRequest, map[string]any{"details": verr.Fields})
	case errors.As(err, &cerr):
		jsonResponse(w, http.StatusBadRequest, map[string]any{"details": cerr.Message})
	case errors.As(err, &nerr):
		if nerr.Message != "" {
			jsonResponse(w, http.StatusNotFound, map[string]any{"details": nerr.Message})
			return
		}
		jsonResponse(w, http.StatusNotFound, map[string]any{"detail": nerr.Error()})
	case errors.As(err, &merr):
		jsonResponse(w, http.StatusBadRequest, map[string]any{"details": merr.Message})
	case errors.Is(err, domain.ErrInvalidCredentials):
		jsonResponse(w, http.StatusUnauthorized, map[string]any{
			"detail": "No active account found with the given credentials",
		})
	case errors.Is(err, domain.ErrTokenInvalid):
		jsonResponse(w, http.StatusUnauthorized, map[string]any{
			"detail": middleware.MsgTokenNotValid,
			"code":   middleware.CodeTokenNotValid,
		})
	default:
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
			slog.String("request_id", audit.RequestID(r.Context())),
		)
		jsonResponse(w, http.StatusInternalServerError, map[string]any{"detail": MsgServerError})
	}
}

func fieldErrors(err error) (domain.FieldErrors, bool) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) && verr.Fields != nil {
		return verr.Fields, true
	}
	return nil, false
}

// bodyError is a request body that could not be decoded, with the response it
// earns.
type bodyError struct {
	status int
	body   map[string]any
	cause  error
}

func (e *bodyError) Error() string { return "decode request body: " + e.cause.Error() }

func (e *bodyError) Unwrap() error { return e.cause }

// readJSON reads the request body into v. An empty body leaves v untouched so
// the service reports the missing fields. Bad JSON yields a *bodyError.
func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var (
		typeErr *json.UnmarshalTypeError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return &bodyError{status: http.StatusBadRequest, cause: err, body: map[string]any{
			"details": domain.FieldErrors{topField(typeErr.Field): []string{typeMessage(typeErr)}},
		}}
	case errors.As(err, &maxErr):
		return &bodyError{status: http.StatusRequestEntityTooLarge, cause: err, body: map[string]any{
			"detail": fmt.Sprintf("Request body exceeds %d bytes.", maxErr.Limit),
		}}
	}
	return &bodyError{status: http.StatusBadRequest, cause: err, body: map[string]any{
		"detail": "JSON parse error - " + err.Error(),
	}}
}

// decodeJSON is readJSON that answers bad JSON directly and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := readJSON(r, v); err != nil {
		var berr *bodyError
		errors.As(err, &berr)
		jsonResponse(w, berr.status, berr.body)
		return false
	}
	return true
}

func topField(field string) string {
	name, _, _ := strings.Cut(field, ".")
	return name
}

func typeMessage(e *json.UnmarshalTypeError) string {
	kind := e.Type.Kind()
	if kind == reflect.Pointer {
		kind = e.Type.Elem().Kind()
	}
	switch kind {
	case reflect.Bool:
		return validation.MsgInvalidBool
	case reflect.String:
		return validation.MsgInvalidString
	case reflect.Int, reflect.Int64, reflect.Int32:
		return "A valid integer is required."
	case reflect.Slice:
		return fmt.Sprintf("Expected a list of items but got type \"%s\".", e.Value)
	case reflect.Struct, reflect.Map:
		return fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", e.Value)
	}
	return validation.MsgInvalid
}

// pathID parses the {id} wildcard. Anything but a positive integer is reported
// as a missing entity.
func pathID(r *http.Request, name, entity string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NotFound(entity)
	}
	return id, nil
}

// formatDateTime renders timestamps as ISO 8601 in UTC with a Z suffix.
func formatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}
