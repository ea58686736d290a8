package jdwp

import (
	"bytes"
	"fmt"
	"io"
)

// Handshake is the fixed marker both sides exchange, client first, before
// any framed packet traffic.
const Handshake = "JDWP-Handshake"

// ExchangeHandshake writes the handshake marker and waits for the remote
// echo. Any deadline must be applied to rw by the caller beforehand.
func ExchangeHandshake(rw io.ReadWriter) error {
	if _, err := io.WriteString(rw, Handshake); err != nil {
		return fmt.Errorf("jdwp: send handshake: %w", err)
	}
	echo := make([]byte, len(Handshake))
	if _, err := io.ReadFull(rw, echo); err != nil {
		return fmt.Errorf("jdwp: read handshake: %w", err)
	}
	if !bytes.Equal(echo, []byte(Handshake)) {
		return fmt.Errorf("jdwp: unexpected handshake reply %q", echo)
	}
	return nil
}

// AcceptHandshake is the server half of the exchange: it waits for the
// marker and echoes it back. Used by test fakes.
func AcceptHandshake(rw io.ReadWriter) error {
	marker := make([]byte, len(Handshake))
	if _, err := io.ReadFull(rw, marker); err != nil {
		return fmt.Errorf("jdwp: read handshake: %w", err)
	}
	if !bytes.Equal(marker, []byte(Handshake)) {
		return fmt.Errorf("jdwp: unexpected handshake %q", marker)
	}
	if _, err := rw.Write(marker); err != nil {
		return fmt.Errorf("jdwp: echo handshake: %w", err)
	}
	return nil
}
