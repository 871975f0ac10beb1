package instance

import "os"

// ID returns the process identifier used in logs and lock ownership.
func ID() string {
	for _, key := range []string{"DYNO", "INSTANCE_ID", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
