package lib

import (
	"github.com/google/uuid"
)

// NewLaunchID identifies one launch attempt in logs and status output.
func NewLaunchID() string {
	return uuid.NewString()
}

// ShortID trims a launch ID for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
