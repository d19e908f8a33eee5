package config

import "go.uber.org/zap"

// NewLogger builds the process logger. Debug selects human-readable
// development output; otherwise JSON production output.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
