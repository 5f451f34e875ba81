package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env reads typed configuration values. Values that fail to parse fall back
// to the default and are remembered in Invalid so callers can warn about them.
type Env struct {
	lookup  func(string) (string, bool)
	Invalid []string
}

// OSEnv reads from the process environment.
func OSEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

// MapEnv reads from m. It is used by tests and by callers that assemble
// configuration from another source.
func MapEnv(m map[string]string) *Env {
	return &Env{lookup: func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}}
}

func (e *Env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *Env) invalid(key string) {
	e.Invalid = append(e.Invalid, key)
}

// String returns the value of key or def when unset or empty.
func (e *Env) String(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

// Int parses key as a base-10 integer.
func (e *Env) Int(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key)
		return def
	}
	return n
}

// Float parses key as a float64.
func (e *Env) Float(key string, def float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key)
		return def
	}
	return f
}

// Bool accepts true/1/yes/on and false/0/no/off, case-insensitively.
func (e *Env) Bool(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	e.invalid(key)
	return def
}

// Duration accepts Go duration syntax ("90s", "2h") or a bare number of
// seconds.
func (e *Env) Duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	e.invalid(key)
	return def
}

// List splits a comma-separated value, dropping empty entries.
func (e *Env) List(key string) []string {
	v, ok := e.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
