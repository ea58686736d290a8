package jcalc

import (
	"io"
	"net"
	"time"
)

// DefaultAddr is the conventional loopback endpoint of a JVM started with
// the debug agent on port 5005.
const DefaultAddr = "127.0.0.1:5005"

var defaultOptions = ClientOptions{
	Addr:             DefaultAddr,
	RequestTimeout:   10 * time.Second,
	HandshakeTimeout: 5 * time.Second,
}

// ClientOptions configures a Client. The zero value of each field means
// "use the default".
type ClientOptions struct {
	// Addr is the host:port of the already-listening, suspended debug
	// agent.
	Addr string

	// RequestTimeout bounds the wait for each command's reply. The wire
	// protocol itself implies no timeout; this guards against a remote
	// that is not actually suspended.
	RequestTimeout time.Duration

	// HandshakeTimeout bounds the TCP dial plus the handshake echo. The
	// negotiation requests that follow are bounded by RequestTimeout.
	HandshakeTimeout time.Duration

	// Logger controls diagnostic output. Level LogVerbose traces every
	// protocol operation; LogDebug additionally dumps raw packets.
	Logger LoggerOptions

	// TraceWriter, when non-nil, receives one msgpack-encoded record per
	// sent and received packet, for offline inspection.
	TraceWriter io.Writer

	// Dial, when non-nil, replaces the default TCP dial. Used by tests to
	// connect over in-memory pipes.
	Dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// NewClientOptions returns options for connecting to addr, with defaults
// for everything else. An empty addr selects DefaultAddr.
func NewClientOptions(addr string) *ClientOptions {
	return &ClientOptions{Addr: addr}
}

func (opts *ClientOptions) addr() string {
	if opts.Addr == "" {
		return defaultOptions.Addr
	}
	return opts.Addr
}

func (opts *ClientOptions) requestTimeout() time.Duration {
	if opts.RequestTimeout == 0 {
		return defaultOptions.RequestTimeout
	}
	return opts.RequestTimeout
}

func (opts *ClientOptions) handshakeTimeout() time.Duration {
	if opts.HandshakeTimeout == 0 {
		return defaultOptions.HandshakeTimeout
	}
	return opts.HandshakeTimeout
}

func (opts *ClientOptions) dial(network, addr string, timeout time.Duration) (net.Conn, error) {
	if opts.Dial != nil {
		return opts.Dial(network, addr, timeout)
	}
	return net.DialTimeout(network, addr, timeout)
}

func (opts *ClientOptions) logger() logger {
	return logger{l: opts.Logger}
}
