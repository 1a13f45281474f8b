// Package tprl creates Temporal clients wired to slog.
package tprl

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/casualjim/ruminate/pkg/slogx"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// HostPort returns the address to dial: the argument when set, then the
// TEMPORAL_ADDRESS environment variable, then client.DefaultHostPort.
func HostPort(hostPort string) string {
	if hostPort != "" {
		return hostPort
	}
	if s := os.Getenv("TEMPORAL_ADDRESS"); s != "" {
		return s
	}
	return client.DefaultHostPort
}

// NewClient creates a lazy client; no connection is made until the first
// call.
func NewClient(hostPort string) (client.Client, error) {
	lg := slog.Default().With(slogx.LoggerName("ruminate.temporal"))

	cl, err := client.NewLazyClient(client.Options{
		HostPort: HostPort(hostPort),
		Logger:   log.NewStructuredLogger(lg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	return cl, nil
}
