package featureflags

import (
	"os"
	"strings"
)

// Known flags.
const (
	// LiveResults serves the websocket tally feed at /ws/vote/results.
	LiveResults = "live_results"
)

// Set is the collection of flags switched on for this process.
type Set struct {
	enabled map[string]bool
}

// New enables the named flags. FLAG_<NAME> environment variables override the list
// in either direction.
func New(names []string) *Set {
	s := &Set{enabled: make(map[string]bool, len(names))}
	for _, n := range names {
		s.enabled[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return s
}

// Enabled reports whether name is switched on.
func (s *Set) Enabled(name string) bool {
	name = strings.ToLower(name)
	if v, ok := envOverride(name); ok {
		return v
	}
	return s != nil && s.enabled[name]
}

func envOverride(name string) (bool, bool) {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok {
		return false, false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, true
	default:
		return false, true
	}
}
