package kernel

import (
	"fmt"
	"strings"
)

// InitializationError lists the dependencies that failed a check
type InitializationError struct {
	Message string
	Items   []string
}

func NewInitializationError(message string, items []string) *InitializationError {
	return &InitializationError{Message: message, Items: items}
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Items, ", "))
}
