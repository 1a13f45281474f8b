package natsx

import (
	"os"
	"strings"

	"github.com/nats-io/nats.go"
)

// ClientName is the connection name reported to the NATS server.
const ClientName = "ruminate"

// NewClient connects to the NATS server named by the NATS_URL environment
// variable, falling back to nats.DefaultURL.
func NewClient(opts ...nats.Option) (*nats.Conn, error) {
	return Connect(os.Getenv("NATS_URL"), opts...)
}

// Connect connects to url. Without options the connection is named
// ClientName and uses compression.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		url = nats.DefaultURL
	}
	if len(opts) == 0 {
		opts = append(opts, nats.Name(ClientName), nats.Compression(true))
	}
	return nats.Connect(url, opts...)
}
