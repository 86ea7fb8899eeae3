// Package cmd holds the build information stamped into every rfapi binary.
package cmd

// Set at build time with -ldflags "-X github.com/circleci/rfapi/cmd.Version=..."
var (
	Version = "dev"
	Date    = "unknown"
)
