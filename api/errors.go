package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/utt-core/log"
)

// Error is a coded API failure. Code is the stable numeric code clients
// switch on and HTTPstatus the status the handler answers with.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// errorBody is the wire form of an Error, e.g.
// {"error":"nullifier already spent: 0a1b...","code":40011}
type errorBody struct {
	Err  string `json:"error"`
	Code int    `json:"code"`
}

// MarshalJSON encodes the message and code. HTTPstatus travels as the
// response status and is left out of the body.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Err: e.Err.Error(), Code: e.Code})
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap gives errors.Is access to the wrapped error chain.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends e as the JSON body of the response.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warnw("cannot marshal API error", "error", err.Error(), "code", e.Code)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(msg); err != nil {
		log.Warnw("cannot write API error", "error", err.Error())
	}
}

// detail returns a copy of e with detail appended to its message.
func (e Error) detail(detail string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %s", e.Err, detail),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of e with s appended to its message.
func (e Error) With(s string) Error {
	return e.detail(s)
}

// Withf is With with a format string.
func (e Error) Withf(format string, args ...any) Error {
	return e.detail(fmt.Sprintf(format, args...))
}

// WithErr returns a copy of e with the message of err appended.
func (e Error) WithErr(err error) Error {
	return e.detail(err.Error())
}
