package jcalc

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/jcalc/jcalc-go/jcalc/internal/jcalcutil"
	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

// transport is one framed packet stream to the remote VM. The handshake
// happens on the raw net.Conn before a transport is constructed.
type transport interface {
	WritePacket(*jdwp.Packet) error
	ReadPacket() (*jdwp.Packet, error)
	Close() error
}

type tcpTransport struct {
	conn net.Conn
	r    *bufio.Reader
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	return &tcpTransport{conn: conn, r: bufio.NewReader(conn)}
}

func (t *tcpTransport) WritePacket(p *jdwp.Packet) error {
	return jdwp.WritePacket(t.conn, p)
}

func (t *tcpTransport) ReadPacket() (*jdwp.Packet, error) {
	return jdwp.ReadPacket(t.r)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// verboseTransport dumps every packet through the logger at LogDebug.
type verboseTransport struct {
	t   transport
	log logger
}

func (vt verboseTransport) WritePacket(p *jdwp.Packet) error {
	vt.log.Debugf("send %s", p)
	return vt.t.WritePacket(p)
}

func (vt verboseTransport) ReadPacket() (*jdwp.Packet, error) {
	p, err := vt.t.ReadPacket()
	if err != nil {
		return nil, err
	}
	vt.log.Debugf("recv %s", p)
	return p, nil
}

func (vt verboseTransport) Close() error {
	vt.log.Debugf("transport closed")
	return vt.t.Close()
}

// TraceRecord is the msgpack record emitted per packet when a TraceWriter
// is configured.
type TraceRecord struct {
	Time      int64  `codec:"time"` // unix nanoseconds
	Dir       string `codec:"dir"`  // "send" or "recv"
	ID        uint32 `codec:"id"`
	Flags     byte   `codec:"flags"`
	CmdSet    byte   `codec:"cmd_set,omitempty"`
	Cmd       byte   `codec:"cmd,omitempty"`
	ErrorCode uint16 `codec:"error_code,omitempty"`
	Payload   []byte `codec:"payload,omitempty"`
}

// traceTransport appends a TraceRecord to w for each packet in either
// direction. Write failures are reported once and tracing stops; they
// never fail the protocol operation itself.
type traceTransport struct {
	t   transport
	log logger

	mtx  sync.Mutex
	w    io.Writer
	dead bool
}

func (tt *traceTransport) record(dir string, p *jdwp.Packet) {
	tt.mtx.Lock()
	defer tt.mtx.Unlock()
	if tt.dead {
		return
	}
	rec := TraceRecord{
		Time:      time.Now().UnixNano(),
		Dir:       dir,
		ID:        p.ID,
		Flags:     p.Flags,
		CmdSet:    p.CmdSet,
		Cmd:       p.Cmd,
		ErrorCode: p.ErrorCode,
		Payload:   p.Payload,
	}
	if err := jcalcutil.EncodeMsg(tt.w, &rec); err != nil {
		tt.dead = true
		tt.log.Warnf("packet trace disabled: %v", err)
	}
}

func (tt *traceTransport) WritePacket(p *jdwp.Packet) error {
	err := tt.t.WritePacket(p)
	if err == nil {
		tt.record("send", p)
	}
	return err
}

func (tt *traceTransport) ReadPacket() (*jdwp.Packet, error) {
	p, err := tt.t.ReadPacket()
	if err != nil {
		return nil, err
	}
	tt.record("recv", p)
	return p, nil
}

func (tt *traceTransport) Close() error {
	return tt.t.Close()
}
