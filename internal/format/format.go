// Package format converts prices, tags and dates between their stored form
// and what people type and read.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultCurrency is the symbol used when an item has no currency.
const DefaultCurrency = "€"

// ParsePrice reads user input like "1 234.50" or "1,234.50" into cents.
// Commas and whitespace are dropped before parsing, so a comma is never a
// decimal separator. An empty result means "no price" (nil, nil). Negative
// amounts and amounts too large for int64 cents are rejected.
func ParsePrice(input string) (*int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	if cleaned == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("format: %q is not a price", input)
	}
	if v < 0 {
		return nil, fmt.Errorf("format: %q is negative", input)
	}
	rounded := math.Round(v * 100)
	if rounded >= math.MaxInt64 {
		return nil, fmt.Errorf("format: %q is too large", input)
	}
	cents := int64(rounded)
	return &cents, nil
}

// Price renders cents as "€12.50". Nil renders as "".
func Price(cents *int64, currency string) string {
	if cents == nil {
		return ""
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	sign := ""
	c := *cents
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, currency, c/100, c%100)
}

// ParseTags splits comma-separated input, trimming and dropping blanks.
func ParseTags(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Tags joins tags for display.
func Tags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Year extracts the year of a YYYY-MM-DD or RFC 3339 date, or "" if the
// date does not parse.
func Year(date string) string {
	if t, err := time.Parse(time.DateOnly, date); err == nil {
		return strconv.Itoa(t.Year())
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return strconv.Itoa(t.UTC().Year())
	}
	return ""
}
