// Package form decodes application/x-www-form-urlencoded bodies.
//
// The body is a sequence of '&'-separated pairs, each split on its first
// '='. Keys and values are percent-decoded with '+' meaning space. A pair
// that fails to decode is dropped, a pair without '=' has an empty value,
// and for a repeated key the first occurrence wins. Decoding never fails.
package form

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MaxBodyBytes caps the body read by Parse. Larger bodies decode as empty.
const MaxBodyBytes = 64 << 10

// Values holds decoded fields.
type Values map[string]string

// Get returns the value for key, or "" when absent.
func (v Values) Get(key string) string {
	return v[key]
}

// Decode parses body into Values.
func Decode(body string) Values {
	values := make(Values)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil || key == "" {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}
		if _, seen := values[key]; seen {
			continue
		}
		values[key] = value
	}
	return values
}

// Parse reads and decodes the request body. Unreadable or oversized bodies
// yield no fields.
func Parse(r *http.Request) Values {
	if r.Body == nil {
		return Values{}
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return Values{}
	}
	if len(body) > MaxBodyBytes {
		return Values{}
	}
	return Decode(string(body))
}
