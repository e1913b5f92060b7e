package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/server/middleware"
)

// maxBodyBytes caps request bodies. Every payload this service accepts is a
// handful of short strings.
const maxBodyBytes = 1 << 20

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeMessage writes the {"message": ...} envelope used by every non-list
// endpoint.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.MessageResponse{Message: message})
}

// writeServerError logs err against the request ID and answers 500 with the
// error text. Stack traces never reach the client.
func writeServerError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
		Message: "Server error",
		Error:   err.Error(),
	})
}

var errBadBody = errors.New("invalid request body")

// readBody decodes the request body into v. JSON and urlencoded form bodies
// are both accepted; form fields are decoded through the same JSON tags. An
// empty body leaves v untouched.
func readBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("%w: %v", errBadBody, err)
		}
		fields := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("%w: %v", errBadBody, err)
		}
		if err := json.Unmarshal(b, v); err != nil {
			return fmt.Errorf("%w: %v", errBadBody, err)
		}
		return nil
	default:
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", errBadBody, err)
		}
		return nil
	}
}

// keyRef is an apikey_id as submitted by a client. Browsers post it as a
// string, scripts as a number; both are accepted.
type keyRef struct {
	raw string
}

func (k *keyRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		k.raw = strings.TrimSpace(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("apikey_id must be a number or string")
	}
	if n.String() != "0" {
		k.raw = n.String()
	}
	return nil
}

// empty reports whether no key was supplied at all.
func (k keyRef) empty() bool { return k.raw == "" }

// id parses the reference as a key ID. ok is false for anything that cannot
// name a stored key.
func (k keyRef) id() (id int64, ok bool) {
	n, err := strconv.ParseInt(k.raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
