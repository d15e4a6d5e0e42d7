package httpx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/log"
	"github.com/mbolis/event-registration/registration"
)

// ErrorBody is the JSON body of every API error response.
type ErrorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Error: msg})
}

// Will log an error, and send a JSON response with status 500 and default text
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	writeJSONError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// Will log a debug message, and send a JSON response with status 404
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Debugf("%s: %s", code, err)
	writeJSONError(w, r, http.StatusNotFound, err.Error())
}

// Will log an error code at the given level, and send
// a JSON response with status and default text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	writeJSONError(w, r, status, http.StatusText(status))
}

// Will log an error code and message at the given level,
// and send a JSON response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	writeJSONError(w, r, status, errMsg)
}

// WriteError maps a registration error to its response status. code is
// logged for errors that carry none of their own.
func WriteError(w http.ResponseWriter, r *http.Request, code string, err error) {
	var (
		validation *registration.ValidationError
		notFound   *registration.NotFoundError
		store      *registration.StoreError
	)
	switch {
	case errors.As(err, &validation):
		LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, code, "%s", validation.Msg)
	case errors.As(err, &notFound):
		LogNotFound(w, r, code, notFound)
	case errors.As(err, &store):
		log.Errorf("%s: %s", store.Op, store.Err)
		writeJSONError(w, r, http.StatusInternalServerError, failedOp(store.Op))
	default:
		LogInternalError(w, r, code, err)
	}
}

// failedOp turns "db.list_fields" into "failed to list fields".
func failedOp(op string) string {
	op = op[strings.LastIndexByte(op, '.')+1:]
	return "failed to " + strings.ReplaceAll(op, "_", " ")
}

// StatusOf is the response status WriteError uses for err.
func StatusOf(err error) int {
	var (
		validation *registration.ValidationError
		notFound   *registration.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Message is the text WriteError sends for err.
func Message(err error) string {
	var (
		validation *registration.ValidationError
		notFound   *registration.NotFoundError
		store      *registration.StoreError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Msg
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &store):
		return failedOp(store.Op)
	}
	return http.StatusText(http.StatusInternalServerError)
}
