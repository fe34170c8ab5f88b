// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package e2e

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

var (
	errUnknownEncoding = errors.New("unknown output encoding")
	errNotASCII        = errors.New("rune not representable in ascii")
)

// encodeFunc converts UTF-8 text to the bytes of an output charset, failing
// when a rune has no representation in it.
type encodeFunc func(string) ([]byte, error)

func encodeUTF8(s string) ([]byte, error) {
	return []byte(s), nil
}

func encodeASCII(s string) ([]byte, error) {
	for i, r := range s {
		if r >= utf8.RuneSelf {
			return nil, fmt.Errorf("%w: %q at offset %d", errNotASCII, r, i)
		}
	}
	return []byte(s), nil
}

// charsetEncoder resolves name to an encoder. The WHATWG index maps "ascii" to
// windows-1252, so the strict ASCII names are handled before the lookup.
func charsetEncoder(name string) (encodeFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return encodeUTF8, nil
	case "ascii", "us-ascii":
		return encodeASCII, nil
	}

	encoding, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errUnknownEncoding, name)
	}

	return func(s string) ([]byte, error) {
		return encoding.NewEncoder().Bytes([]byte(s))
	}, nil
}

// escapeNonASCII replaces every non-ASCII rune with a JSON \uXXXX escape,
// using a surrogate pair outside the basic multilingual plane.
func escapeNonASCII(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			builder.WriteRune(r)
		case r > 0xFFFF:
			high, low := utf16.EncodeRune(r)
			fmt.Fprintf(&builder, `\u%04x\u%04x`, high, low)
		default:
			fmt.Fprintf(&builder, `\u%04x`, r)
		}
	}
	return builder.String()
}

// replaceNonASCII substitutes '?' for every non-ASCII rune.
func replaceNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= utf8.RuneSelf {
			return '?'
		}
		return r
	}, s)
}
