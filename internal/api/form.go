package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// form reads request fields from either a JSON object or an urlencoded body,
// so the same handler serves API clients and browser form posts.
type form struct {
	json   map[string]json.RawMessage
	values url.Values
}

func parseForm(r *http.Request) (*form, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		f := &form{json: map[string]json.RawMessage{}}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&f.json); err != nil {
			return nil, apperr.Validation("invalid request body")
		}
		return f, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, apperr.Validation("invalid request body")
	}
	return &form{values: r.Form}, nil
}

// String returns a field as text. JSON numbers and booleans come back in their
// literal form.
func (f *form) String(name string) string {
	if f.json == nil {
		return f.values.Get(name)
	}
	raw, ok := f.json[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

// Int parses an integer field, returning def when it is absent.
func (f *form) Int(name string, def int) (int, error) {
	raw := strings.TrimSpace(f.String(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be a whole number", name)
	}
	return n, nil
}

// Decimal parses a money field, returning zero when it is absent.
func (f *form) Decimal(name string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(f.String(name))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validation("%s must be a number", name)
	}
	return d, nil
}

// Decode unmarshals a structured field into dst. A form post carries it as
// stringified JSON; a JSON body may carry either the value or such a string.
func (f *form) Decode(name string, dst any) error {
	raw := []byte(f.String(name))
	if f.json != nil {
		if v, ok := f.json[name]; ok && len(v) > 0 && v[0] != '"' {
			raw = v
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return apperr.Validation("%s is required", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Validation("%s is malformed", name)
	}
	return nil
}
