package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSessionID generates an opaque, time-prefixed session identifier.
func NewSessionID() string {
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), uuid.NewString())
}
