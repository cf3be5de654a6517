package api

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultErrorMessage is used when neither the payload nor the HTTP status
// text says anything useful.
const DefaultErrorMessage = "request failed"

// ConfigError reports a client that cannot be built from its configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("api config: %s %s", e.Field, e.Reason)
}

// APIError is returned for every non-2xx response.
type APIError struct {
	Message string
	Status  int
	// Payload is the raw JSON body, or nil when the body was not JSON.
	Payload json.RawMessage
}

func (e *APIError) Error() string {
	return e.Message
}

// Decode unmarshals the error payload into v.
func (e *APIError) Decode(v any) error {
	if len(e.Payload) == 0 {
		return errors.New("api error has no payload")
	}
	return json.Unmarshal(e.Payload, v)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// MessageOf picks the text to show for err: the API message, then the error
// text, then fallback.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// APIMessage is like MessageOf but ignores non-API errors, so transport
// details never reach the user.
func APIMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// ResolveErrorMessage extracts a human readable message from an error body.
//
// A top-level detail, error or message field wins, in that order. A string
// value is used as is; an object or array value is searched depth-first
// for its first non-empty string. Failing that the whole payload is
// searched the same way, so validation bodies shaped like
// {"email": ["This field is required."]} still yield a message.
func ResolveErrorMessage(payload []byte, fallback string) string {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return fallback
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() && !root.IsArray() {
		return fallback
	}

	if root.IsObject() {
		for _, key := range []string{"detail", "error", "message"} {
			direct := root.Get(key)
			if !direct.Exists() || direct.Type == gjson.Null {
				continue
			}
			if direct.Type == gjson.String {
				if msg := strings.TrimSpace(direct.Str); msg != "" {
					return msg
				}
			} else if msg, ok := firstString(direct); ok {
				return msg
			}
			break
		}
	}

	if msg, ok := firstString(root); ok {
		return msg
	}
	return fallback
}

// firstString walks v depth first and returns the first string value that
// is not blank. Object keys are not candidates. Members are visited in
// JavaScript property order: array-index keys ascending, then the rest in
// document order.
func firstString(v gjson.Result) (string, bool) {
	switch {
	case v.Type == gjson.String:
		msg := strings.TrimSpace(v.Str)
		return msg, msg != ""
	case v.IsArray():
		var (
			found string
			ok    bool
		)
		v.ForEach(func(_, value gjson.Result) bool {
			found, ok = firstString(value)
			return !ok
		})
		return found, ok
	case v.IsObject():
		for _, m := range objectMembers(v) {
			if msg, ok := firstString(m.value); ok {
				return msg, true
			}
		}
	}
	return "", false
}

type member struct {
	key   string
	value gjson.Result
}

// objectMembers lists v's members in property order. A repeated key keeps
// its first position and its last value, as JSON.parse does.
func objectMembers(v gjson.Result) []member {
	var members []member
	seen := make(map[string]int)
	v.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if i, dup := seen[k]; dup {
			members[i].value = value
			return true
		}
		seen[k] = len(members)
		members = append(members, member{key: k, value: value})
		return true
	})

	slices.SortStableFunc(members, func(a, b member) int {
		ai, aIdx := arrayIndex(a.key)
		bi, bIdx := arrayIndex(b.key)
		switch {
		case aIdx && bIdx:
			return cmp.Compare(ai, bi)
		case aIdx:
			return -1
		case bIdx:
			return 1
		}
		return 0
	})
	return members
}

// arrayIndex reports whether k is the canonical form of an array index.
func arrayIndex(k string) (uint64, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(k, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}
