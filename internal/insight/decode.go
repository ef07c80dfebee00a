package insight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CleanResponse turns raw model output into text that should decode as
// JSON. It trims whitespace, strips Markdown code fences (```json or ```),
// and escapes raw newline, carriage return, tab and other control
// characters that appear inside string literals.
func CleanResponse(raw string) string {
	s := stripFences(strings.TrimSpace(raw))
	return escapeControlInStrings(strings.TrimSpace(s))
}

// stripFences returns the body of the first fenced block, or s unchanged
// when it holds no fence. Backticks inside JSON string literals are not
// fences.
func stripFences(s string) string {
	fences := fenceOffsets(s)
	if len(fences) == 0 {
		return s
	}
	body := s[fences[0]+3:]
	if len(fences) > 1 {
		body = s[fences[0]+3 : fences[len(fences)-1]]
	}

	// Drop an info string such as "json" on the opening fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isInfoString(body[:nl]) {
		body = body[nl+1:]
	} else if isInfoString(body) {
		body = ""
	} else if strings.HasPrefix(strings.ToLower(body), "json") {
		body = body[len("json"):]
	}
	return body
}

// fenceOffsets returns the byte offset of every ``` that sits outside a
// double-quoted string.
func fenceOffsets(s string) []int {
	var offsets []int
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
		case strings.HasPrefix(s[i:], "```"):
			offsets = append(offsets, i)
			i += 2
		}
	}
	return offsets
}

func isInfoString(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// escapeControlInStrings walks s tracking whether it is inside a JSON string
// literal and escapes control characters found there. Text outside strings
// is copied as is.
func escapeControlInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString, escaped := false, false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}

		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\':
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = false
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeResponse cleans raw and strictly decodes exactly one JSON value
// into v.
func decodeResponse(raw string, v interface{}) error {
	cleaned := CleanResponse(raw)
	if cleaned == "" {
		return errors.New("empty response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
