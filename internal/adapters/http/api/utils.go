package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

const maxBodyBytes = 1 << 20

// storeFailureMessage is the only detail clients see for internal failures.
const storeFailureMessage = "internal storage error"

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Status: "error", Code: code, Message: msg})
}

// writeError maps err to a response. Validation failures are 400, missing
// records 404 and everything else 500 with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrBodyTooBig):
		writeStatus(w, http.StatusRequestEntityTooLarge, "too_large", publicMessage(err))
	case errors.Is(err, ErrBadRequest), model.IsValidation(err):
		writeStatus(w, http.StatusBadRequest, "bad_request", publicMessage(err))
	case errors.Is(err, model.ErrNotFound):
		writeStatus(w, http.StatusNotFound, "not_found", publicMessage(err))
	case errors.Is(err, service.ErrNotStarted):
		writeStatus(w, http.StatusServiceUnavailable, "unavailable", http.StatusText(http.StatusServiceUnavailable))
	default:
		log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err))
		writeStatus(w, http.StatusInternalServerError, "internal_error", storeFailureMessage)
	}
}

// publicMessage returns the innermost cause of err without operation
// prefixes.
func publicMessage(err error) string {
	for {
		var me *model.Error
		if !errors.As(err, &me) || me.Err == nil {
			break
		}
		err = me.Err
	}
	return err.Error()
}

// decodeJSON reads one JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "api.decode"
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return model.WrapKind(op, ErrBodyTooBig, fmt.Errorf("body exceeds %d bytes", tooBig.Limit))
		case errors.Is(err, io.EOF):
			return model.WrapKind(op, ErrBadRequest, errors.New("request body is required"))
		default:
			return model.WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		}
	}
	return nil
}

// intParam parses an optional integer query parameter. Missing yields def.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.WrapKind("api.params", ErrBadRequest, fmt.Errorf("%s must be an integer", name))
	}
	return n, nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, model.WrapKind("api.params", ErrBadRequest, fmt.Errorf("%s must be true or false", name))
	}
	return b, nil
}

func methodAllowed(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", http.StatusText(http.StatusMethodNotAllowed))
	return false
}
