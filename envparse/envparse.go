// Package envparse parses and serialises the process-local .env-style
// override file (spec §4.3.2): KEY=value lines, comments, quoting.
package envparse

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Parse reads KEY=value pairs from r using the same quoting rules as a
// standard .env file: '#' full-line and trailing comments outside quotes,
// single/double-quoted values with escape handling, blank-line and CRLF
// tolerance.
func Parse(r io.Reader) (map[string]string, error) {
	vars, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	return vars, nil
}

// Format serialises vars as .env-style KEY=value lines in deterministic
// (sorted key) order, quoting any value that contains whitespace or '#'.
func Format(vars map[string]string) []byte {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		v := vars[k]
		if needsQuoting(v) {
			fmt.Fprintf(&buf, "%s=%q\n", k, v)
		} else {
			fmt.Fprintf(&buf, "%s=%s\n", k, v)
		}
	}
	return buf.Bytes()
}

func needsQuoting(v string) bool {
	return strings.ContainsAny(v, " \t#\"'\n")
}
