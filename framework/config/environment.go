package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ProfilesKey is the environment variable that lists the active profiles,
// comma-separated:
//
//	APP_PROFILES=production,metrics
const ProfilesKey = "APP_PROFILES"

// Environment exposes the property sources and active profiles the container
// consults when it evaluates conditional registrations.
//
// Properties are read from the process environment; Load()-style env files
// are merged in first, so a .env file never overrides a real variable.
type Environment struct {
	profiles map[string]bool
}

// New loads the given env files (default ".env") and builds an Environment.
// Missing files are not an error — production usually has no .env.
func New(envFiles ...string) *Environment {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	_ = godotenv.Load(files...)

	e := &Environment{profiles: make(map[string]bool)}
	for _, p := range strings.Split(os.Getenv(ProfilesKey), ",") {
		if p = strings.TrimSpace(p); p != "" {
			e.profiles[p] = true
		}
	}
	return e
}

// ── Profiles ─────────────────────────────────────────────────────────────────

// ActivateProfiles turns on additional profiles beside those read from
// APP_PROFILES. Useful in tests and composition roots.
func (e *Environment) ActivateProfiles(names ...string) {
	for _, n := range names {
		e.profiles[n] = true
	}
}

// ActiveProfiles returns the currently active profile names.
func (e *Environment) ActiveProfiles() []string {
	out := make([]string, 0, len(e.profiles))
	for p := range e.profiles {
		out = append(out, p)
	}
	return out
}

// Accepts reports whether ANY of the given profiles is active.
// With no arguments it always returns true.
func (e *Environment) Accepts(profiles ...string) bool {
	if len(profiles) == 0 {
		return true
	}
	for _, p := range profiles {
		if e.profiles[p] {
			return true
		}
	}
	return false
}

// ── Properties ───────────────────────────────────────────────────────────────

// Property returns a raw property value, falling back to fallback.
func (e *Environment) Property(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// PropertyInt returns an int property value.
func (e *Environment) PropertyInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

// PropertyBool returns a bool property value.
func (e *Environment) PropertyBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// HasProperty reports whether the property is set to a non-empty value.
func (e *Environment) HasProperty(key string) bool {
	return os.Getenv(key) != ""
}
