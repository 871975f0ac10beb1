package enums

import "fmt"

// StateBackend selects where cart session state is persisted.
type StateBackend string

const (
	StateBackendRedis StateBackend = "redis"
	StateBackendSQL   StateBackend = "sql"
)

var validStateBackends = []StateBackend{
	StateBackendRedis,
	StateBackendSQL,
}

// String implements fmt.Stringer.
func (s StateBackend) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StateBackend.
func (s StateBackend) IsValid() bool {
	for _, candidate := range validStateBackends {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStateBackend converts raw input into a StateBackend.
func ParseStateBackend(value string) (StateBackend, error) {
	for _, candidate := range validStateBackends {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid state backend %q", value)
}
