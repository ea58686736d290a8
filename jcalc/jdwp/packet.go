package jdwp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the size of the fixed packet header: length, id, flags and
// either command-set/command (request) or a 2-byte error code (reply).
const HeaderSize = 11

// FlagReply marks a packet as a reply to a previously issued command.
const FlagReply = 0x80

// maxPacketSize bounds the declared length of an inbound packet. The
// replies this client provokes are tiny; anything past this is treated as a
// framing failure rather than an allocation request.
const maxPacketSize = 1 << 24

// Packet is one framed unit of JDWP traffic. For requests CmdSet/Cmd are
// meaningful; for replies ErrorCode is.
type Packet struct {
	ID        uint32
	Flags     byte
	CmdSet    byte
	Cmd       byte
	ErrorCode uint16
	Payload   []byte
}

// IsReply reports whether the packet has the reply flag set.
func (p *Packet) IsReply() bool {
	return p.Flags&FlagReply != 0
}

func (p *Packet) String() string {
	if p.IsReply() {
		return fmt.Sprintf("reply(id=%d err=%d len=%d)", p.ID, p.ErrorCode, len(p.Payload))
	}
	return fmt.Sprintf("command(id=%d set=%d cmd=%d len=%d)", p.ID, p.CmdSet, p.Cmd, len(p.Payload))
}

// FramingError reports a packet whose declared length disagrees with the
// bytes available, or a header too short to be a packet at all.
type FramingError struct {
	Declared int
	Actual   int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("jdwp: framing: declared length %d, have %d bytes", e.Declared, e.Actual)
}

// Encode serializes the packet into its wire form. The length field is
// computed from the payload.
func (p *Packet) Encode() []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	binary.BigEndian.PutUint32(buf[4:8], p.ID)
	buf[8] = p.Flags
	if p.IsReply() {
		binary.BigEndian.PutUint16(buf[9:11], p.ErrorCode)
	} else {
		buf[9] = p.CmdSet
		buf[10] = p.Cmd
	}
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// Decode parses a single packet out of data. The whole of data must be
// exactly one packet; a length mismatch yields a *FramingError.
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, &FramingError{Declared: HeaderSize, Actual: len(data)}
	}
	declared := int(binary.BigEndian.Uint32(data[0:4]))
	if declared != len(data) || declared < HeaderSize {
		return nil, &FramingError{Declared: declared, Actual: len(data)}
	}
	p := &Packet{
		ID:    binary.BigEndian.Uint32(data[4:8]),
		Flags: data[8],
	}
	if p.IsReply() {
		p.ErrorCode = binary.BigEndian.Uint16(data[9:11])
	} else {
		p.CmdSet = data[9]
		p.Cmd = data[10]
	}
	if declared > HeaderSize {
		p.Payload = append([]byte(nil), data[HeaderSize:declared]...)
	}
	return p, nil
}

// ReadPacket reads exactly one packet from r, blocking until the declared
// length has arrived or r fails.
func ReadPacket(r io.Reader) (*Packet, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	declared := int(binary.BigEndian.Uint32(head[:]))
	if declared < HeaderSize || declared > maxPacketSize {
		return nil, &FramingError{Declared: declared, Actual: 4}
	}
	buf := make([]byte, declared)
	copy(buf, head[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, err
	}
	return Decode(buf)
}

// WritePacket writes the packet's wire form to w.
func WritePacket(w io.Writer, p *Packet) error {
	_, err := w.Write(p.Encode())
	return err
}
