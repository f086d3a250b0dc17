// Package obscure converts JSON-serializable values to and from an opaque
// string form before they enter persisted session state.
//
// This is obfuscation, not encryption. The transform is a fixed keyed byte
// rotation and is trivially reversible by anyone with this source. It exists
// only to keep casual eyes off persisted blobs; it provides NO confidentiality
// at rest and must never be relied on as a security boundary.
package obscure

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// prefix versions the encoded form so a future format change can coexist with
// old persisted blobs.
const prefix = "o1."

var key = []byte("itip-session-obscure")

// Encode converts any JSON-serializable value to its opaque string form.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	rotate(data)
	return prefix + base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. The second return value is false when the input was
// not produced by Encode; Decode never panics on garbage input.
func Decode(s string) (any, bool) {
	var v any
	if !DecodeInto(s, &v) {
		return nil, false
	}
	return v, true
}

// DecodeInto decodes an encoded string into dst (a pointer), returning false
// on any malformed input. dst is left untouched on failure.
func DecodeInto(s string, dst any) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	data, err := base64.RawURLEncoding.DecodeString(s[len(prefix):])
	if err != nil {
		return false
	}
	rotate(data)
	return json.Unmarshal(data, dst) == nil
}

// rotate XORs data in place with the repeating key. XOR is its own inverse,
// so the same pass encodes and decodes.
func rotate(data []byte) {
	for i := range data {
		data[i] ^= key[i%len(key)]
	}
}
