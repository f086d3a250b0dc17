package slug

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from the given label.
//
// Examples:
//   - "Table 12 / Terrace" → "table-12-terrace"
//   - "Çay Bahçesi" → "cay-bahcesi"
func Generate(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))

	// Transliterate Turkish characters; provider labels are frequently Turkish.
	replacer := strings.NewReplacer(
		"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	)
	s = replacer.Replace(s)

	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}

	return s
}

// GenerateUnique appends a short random suffix so two QR codes with the same
// label get distinct public slugs.
func GenerateUnique(label string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand read failures are not survivable in any meaningful way.
		panic(err)
	}
	base := Generate(label)
	if base == "" {
		return hex.EncodeToString(buf)
	}
	return base + "-" + hex.EncodeToString(buf)
}
