package config

import (
	"strconv"
	"strings"
)

// Options is a loosely typed option bag handed to source backends. Values come
// from viper (strings, bools, numbers) so every accessor accepts the common
// encodings and falls back to def when the key is absent or unusable.
type Options map[string]any

// String returns the option as a string.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return def
		}
		return x
	default:
		if s := toString(x); s != "" {
			return s
		}
		return def
	}
}

// Bool returns the option as a bool. Strings are parsed with strconv.ParseBool.
func (o Options) Bool(key string, def bool) bool {
	switch x := o[key].(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
	}
	return def
}

// Int returns the option as an int.
func (o Options) Int(key string, def int) int {
	switch x := o[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	}
	return def
}

// Float returns the option as a float64.
func (o Options) Float(key string, def float64) float64 {
	switch x := o[key].(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return def
}

// Rune returns the first rune of a string option. The escapes "\t" and the
// word "tab" both mean a tab character.
func (o Options) Rune(key string, def rune) rune {
	s, ok := o[key].(string)
	if !ok || s == "" {
		return def
	}
	if r, ok := ParseDelimiter(s); ok {
		return r
	}
	return def
}

// ParseDelimiter decodes a delimiter flag value into a rune.
func ParseDelimiter(s string) (rune, bool) {
	switch strings.ToLower(s) {
	case `\t`, "tab", "\t":
		return '\t', true
	case "":
		return 0, false
	}
	rs := []rune(s)
	if len(rs) != 1 {
		return 0, false
	}
	return rs[0], true
}

func toString(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
