package server

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

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edgard/widgetbot/internal/chat"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError writes err with the status of its kind.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := chat.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "kind", kind.String(), "error", err)
	} else {
		log.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "kind", kind.String(), "error", err)
	}
	respondJSON(w, status, errorResponse{Error: chat.Message(err), Kind: kind.String()})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind chat.Kind) int {
	switch kind {
	case chat.KindInvalidRequest:
		return http.StatusBadRequest
	case chat.KindConfigNotFound, chat.KindSessionNotFound:
		return http.StatusNotFound
	case chat.KindSessionBusy:
		return http.StatusConflict
	case chat.KindEmptyCompletion:
		return http.StatusBadGateway
	case chat.KindCompletionUnavailable:
		return http.StatusServiceUnavailable
	case chat.KindPersistence, chat.KindUnknown:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func badRequest(msg string) error {
	return &chat.Error{Kind: chat.KindInvalidRequest, Op: "decode_request", Msg: msg}
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return badRequest(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("malformed JSON body")
		}
	}
	if err := validate.Struct(dst); err != nil {
		return badRequest(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), describeTag(fe.Tag())))
	}
	return strings.Join(fields, "; ")
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "gt", "min":
		return "too small"
	case "max":
		return "too long"
	case "email":
		return "not a valid email"
	default:
		return "invalid"
	}
}

// idParam parses a positive int64 URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("%s must be a positive integer", name))
	}
	return id, nil
}
