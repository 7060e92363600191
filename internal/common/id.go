package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewJobID generates a unique crawl job identifier
func NewJobID() string {
	return "job_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
