// Package cli parses the driver's "-flag [value]" arguments. A flag may
// appear without a value, which the standard flag package cannot express
// for non-boolean flags such as "-index [path]".
package cli

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Args maps each flag to its value. Flags given without a value map to "".
type Args struct {
	values map[string]string
	seen   map[string]bool
}

// Parse reads flag/value pairs from args. Values not preceded by a flag are
// ignored. A repeated flag keeps its last value.
func Parse(args []string) *Args {
	a := &Args{
		values: make(map[string]string),
		seen:   make(map[string]bool),
	}
	for i := 0; i < len(args); i++ {
		if !IsFlag(args[i]) {
			continue
		}
		flag := args[i]
		a.seen[flag] = true
		delete(a.values, flag)
		if i+1 < len(args) && IsValue(args[i+1]) {
			a.values[flag] = args[i+1]
			i++
		}
	}
	return a
}

// IsFlag reports whether arg starts with a dash followed by a character that
// is neither whitespace nor a digit, so "-5" is a value.
func IsFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	r, _ := utf8.DecodeRuneInString(arg[1:])
	return !unicode.IsSpace(r) && !unicode.IsDigit(r)
}

// IsValue reports whether arg is non-blank and not a flag.
func IsValue(arg string) bool {
	return strings.TrimSpace(arg) != "" && !IsFlag(arg)
}

// Len returns the number of distinct flags.
func (a *Args) Len() int {
	return len(a.seen)
}

// HasFlag reports whether flag was given, with or without a value.
func (a *Args) HasFlag(flag string) bool {
	return a.seen[flag]
}

// HasValue reports whether flag was given with a value.
func (a *Args) HasValue(flag string) bool {
	_, ok := a.values[flag]
	return ok
}

// GetString returns the value of flag, or def if it has none.
func (a *Args) GetString(flag, def string) string {
	if v, ok := a.values[flag]; ok {
		return v
	}
	return def
}

// GetPath is GetString for file system paths.
func (a *Args) GetPath(flag, def string) string {
	return a.GetString(flag, def)
}

// GetInt returns the value of flag as an int, or def if it is missing or
// not a number.
func (a *Args) GetInt(flag string, def int) int {
	v, ok := a.values[flag]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}
