package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/pkg/logbook"
)

// maxFilterLen bounds CEL expressions accepted over HTTP.
const maxFilterLen = 2048

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeNoContent writes a 204 No Content response.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps store and validation errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case model.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, logbook.ErrUnavailable),
		errors.Is(err, model.ErrNotConfigured),
		errors.Is(err, model.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeStoreError reports err with the status statusFor picks. Internal
// errors are not echoed to the client.
func writeStoreError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// parseLimit parses a limit, applying def when empty and capping at maxLimit.
func parseLimit(s string, def, maxLimit int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidLimit, s)
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

// parseTimestamp parses a timestamp string and returns Unix milliseconds.
//
// Supports both RFC3339 format and raw millisecond timestamps.
func parseTimestamp(ts string) (int64, error) {
	if ts == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, fmt.Errorf("%w: bad timestamp %q", model.ErrInvalidRange, ts)
}

// parseBool parses a boolean string and returns the boolean value.
//
// Returns true for "true" or "1", false otherwise.
func parseBool(s string) bool {
	return s == "true" || s == "1"
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q", model.ErrInvalidRange, s)
	}
	return n, nil
}

// parseTags accepts repeated and comma-separated tags.
func parseTags(v url.Values) []string {
	var tags []string
	for _, raw := range v["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// parseQuery builds a Query from URL parameters.
func parseQuery(v url.Values, defLimit, maxLimit int) (model.Query, error) {
	var (
		q   model.Query
		err error
	)
	if q.Start, err = parseTimestamp(v.Get("start")); err != nil {
		return q, err
	}
	if q.End, err = parseTimestamp(v.Get("end")); err != nil {
		return q, err
	}
	if s := v.Get("level"); s != "" {
		if q.Level, err = model.ParseLevel(s); err != nil {
			return q, err
		}
	}
	q.ExplicitLevel = parseBool(v.Get("explicit_level"))
	q.Tags = parseTags(v)
	if q.Limit, err = parseLimit(v.Get("limit"), defLimit, maxLimit); err != nil {
		return q, err
	}
	q.Order = model.Order(strings.ToLower(v.Get("order")))
	if q.AfterID, err = parseUint(v.Get("after_id")); err != nil {
		return q, err
	}
	if f := v.Get("filter"); f != "" {
		if len(f) > maxFilterLen {
			return q, fmt.Errorf("%w: filter too long", model.ErrInvalidFilter)
		}
		q.Filter = f
	}
	return q, q.Validate()
}
