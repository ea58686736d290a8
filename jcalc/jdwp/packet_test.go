package jdwp_test

import (
	"bytes"
	"net"
	"testing"

	"github.com/jcalc/jcalc-go/jcalc/jdwp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacket_EncodeDecode(t *testing.T) {
	t.Run("command", func(t *testing.T) {
		in := &jdwp.Packet{
			ID:      7,
			CmdSet:  jdwp.CmdSetVirtualMachine,
			Cmd:     jdwp.VMIDSizes,
			Payload: []byte{1, 2, 3},
		}
		out, err := jdwp.Decode(in.Encode())
		require.NoError(t, err)
		assert.Equal(t, in, out)
		assert.False(t, out.IsReply())
	})

	t.Run("reply", func(t *testing.T) {
		in := &jdwp.Packet{
			ID:        42,
			Flags:     jdwp.FlagReply,
			ErrorCode: jdwp.ErrInvalidClass,
			Payload:   []byte("payload"),
		}
		out, err := jdwp.Decode(in.Encode())
		require.NoError(t, err)
		assert.Equal(t, in, out)
		assert.True(t, out.IsReply())
	})

	t.Run("empty payload", func(t *testing.T) {
		in := &jdwp.Packet{ID: 1, CmdSet: 1, Cmd: 7}
		raw := in.Encode()
		assert.Len(t, raw, jdwp.HeaderSize)
		out, err := jdwp.Decode(raw)
		require.NoError(t, err)
		assert.Nil(t, out.Payload)
	})
}

func TestDecode_Framing(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		_, err := jdwp.Decode([]byte{0, 0, 0, 5, 9})
		var ferr *jdwp.FramingError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, 5, ferr.Actual)
	})

	t.Run("declared length mismatch", func(t *testing.T) {
		raw := (&jdwp.Packet{ID: 1, CmdSet: 1, Cmd: 1, Payload: []byte{1, 2}}).Encode()
		raw[3]++ // declared length now exceeds the buffer
		_, err := jdwp.Decode(raw)
		var ferr *jdwp.FramingError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, len(raw)+1, ferr.Declared)
		assert.Equal(t, len(raw), ferr.Actual)
	})
}

func TestReadPacket(t *testing.T) {
	t.Run("sequential packets", func(t *testing.T) {
		var buf bytes.Buffer
		first := &jdwp.Packet{ID: 1, CmdSet: 1, Cmd: 7}
		second := &jdwp.Packet{ID: 2, Flags: jdwp.FlagReply, Payload: []byte{0xff}}
		require.NoError(t, jdwp.WritePacket(&buf, first))
		require.NoError(t, jdwp.WritePacket(&buf, second))

		out, err := jdwp.ReadPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, first, out)

		out, err = jdwp.ReadPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, second, out)
	})

	t.Run("absurd declared length", func(t *testing.T) {
		buf := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff})
		_, err := jdwp.ReadPacket(buf)
		var ferr *jdwp.FramingError
		require.ErrorAs(t, err, &ferr)
	})

	t.Run("declared length below header", func(t *testing.T) {
		buf := bytes.NewReader([]byte{0, 0, 0, 3})
		_, err := jdwp.ReadPacket(buf)
		var ferr *jdwp.FramingError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, 3, ferr.Declared)
	})
}

func TestHandshake(t *testing.T) {
	t.Run("exchange", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		errs := make(chan error, 1)
		go func() { errs <- jdwp.AcceptHandshake(server) }()

		require.NoError(t, jdwp.ExchangeHandshake(client))
		require.NoError(t, <-errs)
	})

	t.Run("wrong echo", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		go func() {
			buf := make([]byte, len(jdwp.Handshake))
			server.Read(buf)
			server.Write([]byte("HTTP/1.1 400 B"))
		}()

		err := jdwp.ExchangeHandshake(client)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected handshake")
	})

	t.Run("accept rejects non-marker", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		go client.Write([]byte("GET / HTTP/1.1"))

		err := jdwp.AcceptHandshake(server)
		require.Error(t, err)
	})
}
