package common

import "go.uber.org/zap"

// NewLogger builds the process logger. Debug switches to the development
// encoder with human-readable output.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
