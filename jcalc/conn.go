package jcalc

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

// conn owns one transport session to one remote VM: the handshake, the
// negotiated identifier sizes, the packet id counter, the pending-reply
// table and the identifier cache. All of those are scoped to the conn
// instance; nothing here is process-global.
type conn struct {
	opts *ClientOptions
	log  logger

	t      transport
	sizes  jdwp.IDSizes
	thread jdwp.ThreadID
	cache  *idCache

	// lastID is advanced atomically; ids are strictly increasing and never
	// reused within a connection.
	lastID uint32

	mtx      sync.Mutex
	pending  map[uint32]chan *jdwp.Packet
	closed   bool
	closeErr *Error
	done     chan struct{}

	// reqMtx serializes round trips. Evaluation is inherently sequential,
	// so a single request is in flight at any time even though reply
	// correlation by id would permit pipelining.
	reqMtx sync.Mutex
}

// dialConn establishes the session: TCP connect, handshake, ID-size
// negotiation and invocation-thread discovery. Any failure is a connect
// error and leaves no usable session behind.
func dialConn(opts *ClientOptions) (*conn, error) {
	log := opts.logger()

	nc, err := opts.dial("tcp", opts.addr(), opts.handshakeTimeout())
	if err != nil {
		return nil, newErrorConnect(err)
	}
	if err := nc.SetDeadline(time.Now().Add(opts.handshakeTimeout())); err != nil {
		nc.Close()
		return nil, newErrorConnect(err)
	}
	if err := jdwp.ExchangeHandshake(nc); err != nil {
		nc.Close()
		return nil, newErrorConnect(err)
	}
	if err := nc.SetDeadline(time.Time{}); err != nil {
		nc.Close()
		return nil, newErrorConnect(err)
	}
	log.Verbosef("handshake with %s complete", opts.addr())

	var t transport = newTCPTransport(nc)
	if opts.TraceWriter != nil {
		t = &traceTransport{t: t, log: log, w: opts.TraceWriter}
	}
	if opts.Logger.Is(LogDebug) {
		t = verboseTransport{t: t, log: log}
	}

	c := &conn{
		opts:    opts,
		log:     log,
		t:       t,
		pending: make(map[uint32]chan *jdwp.Packet),
		done:    make(chan struct{}),
	}
	c.cache = newIDCache(c)
	go c.readLoop()

	sizes, err := c.negotiateIDSizes()
	if err != nil {
		c.Close()
		return nil, newErrorConnect(err)
	}
	c.sizes = sizes

	threads, err := c.allThreads()
	if err != nil {
		c.Close()
		return nil, newErrorConnect(err)
	}
	if len(threads) == 0 {
		c.Close()
		return nil, newErrorf(ErrCodeConnect, "remote VM reports no threads")
	}
	// Reflective invocation needs a suspended thread to run on. The VM is
	// expected to be suspended from startup, so the first reported thread
	// serves for the whole session.
	c.thread = threads[0]
	log.Verbosef("using invocation thread %d, object id width %d", c.thread, sizes.ObjectID)
	return c, nil
}

// newErrorConnect folds any session-establishment failure into a connect
// error, keeping the underlying cause.
func newErrorConnect(err error) *Error {
	if e := (*Error)(nil); errors.As(err, &e) {
		return &Error{Code: ErrCodeConnect, Err: e.Err}
	}
	return &Error{Code: ErrCodeConnect, Err: err}
}

// roundTrip sends one command and blocks until its reply arrives, the
// bounded wait elapses, or the connection closes. Reply error codes are
// not interpreted here; callers classify them per command.
func (c *conn) roundTrip(set, cmd byte, payload []byte) (*jdwp.Packet, error) {
	c.reqMtx.Lock()
	defer c.reqMtx.Unlock()

	id := atomic.AddUint32(&c.lastID, 1)
	ch := make(chan *jdwp.Packet, 1)

	c.mtx.Lock()
	if c.closed {
		err := c.closeErr
		c.mtx.Unlock()
		return nil, closedError(err)
	}
	c.pending[id] = ch
	c.mtx.Unlock()

	p := &jdwp.Packet{ID: id, CmdSet: set, Cmd: cmd, Payload: payload}
	if err := c.t.WritePacket(p); err != nil {
		c.forget(id)
		werr := newError(ErrCodeProtocol, err)
		c.closeWith(werr)
		return nil, werr
	}

	timer := time.NewTimer(c.opts.requestTimeout())
	defer timer.Stop()

	select {
	case reply, ok := <-ch:
		if !ok {
			c.mtx.Lock()
			err := c.closeErr
			c.mtx.Unlock()
			return nil, closedError(err)
		}
		return reply, nil
	case <-timer.C:
		c.forget(id)
		err := newErrorf(ErrCodeTimeout, "no reply to %s within %v", p, c.opts.requestTimeout())
		// A missing reply means the remote is wedged or not actually
		// suspended; the session cannot be trusted afterwards.
		c.closeWith(err)
		return nil, err
	case <-c.done:
		c.mtx.Lock()
		err := c.closeErr
		c.mtx.Unlock()
		return nil, closedError(err)
	}
}

func closedError(err *Error) *Error {
	if err != nil {
		return err
	}
	return newErrorf(ErrCodeProtocol, "connection closed")
}

func (c *conn) forget(id uint32) {
	c.mtx.Lock()
	delete(c.pending, id)
	c.mtx.Unlock()
}

// readLoop continuously decodes inbound packets and resolves the pending
// entry matching each arriving reply id. It is the only reader of the
// transport; it exits when the transport fails or the conn closes.
func (c *conn) readLoop() {
	for {
		p, err := c.t.ReadPacket()
		if err != nil {
			c.mtx.Lock()
			wasClosed := c.closed
			c.mtx.Unlock()
			if wasClosed {
				return
			}
			var ferr *jdwp.FramingError
			code := ErrCodeProtocol
			if errors.As(err, &ferr) {
				code = ErrCodeFraming
			}
			c.closeWith(newError(code, err))
			return
		}

		if !p.IsReply() {
			// Command traffic from the VM, e.g. composite events. Nothing
			// here requests events; drop them.
			c.log.Debugf("dropping unsolicited %s", p)
			continue
		}

		c.mtx.Lock()
		ch, ok := c.pending[p.ID]
		if ok {
			delete(c.pending, p.ID)
		}
		waiting := len(c.pending) > 0
		c.mtx.Unlock()
		if !ok {
			// With a request outstanding, a reply nothing asked for means
			// the correlation state disagrees with the remote; the waiter
			// gets a protocol error via teardown.
			if waiting {
				c.closeWith(newErrorf(ErrCodeProtocol, "reply id %d matches no outstanding request", p.ID))
				return
			}
			c.log.Warnf("dropping reply with unmatched id %d", p.ID)
			continue
		}
		ch <- p
	}
}

// closeWith tears the session down, failing every pending request. err is
// nil for an orderly local close.
func (c *conn) closeWith(err *Error) {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	close(c.done)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mtx.Unlock()

	c.t.Close()
	if err != nil {
		c.log.Errorf("connection closed: %v", err)
	}
}

// Close shuts the session down. Cached identifiers die with it.
func (c *conn) Close() error {
	c.closeWith(nil)
	return nil
}

// checkReply converts a non-zero reply error code to an error.
func checkReply(p *jdwp.Packet) error {
	if p.ErrorCode != jdwp.ErrNone {
		return replyError(p.ErrorCode)
	}
	return nil
}

// payloadError wraps a reader failure after a structurally valid reply.
func payloadError(cmd string, err error) error {
	return newError(ErrCodeProtocol, fmt.Errorf("%s reply: %w", cmd, err))
}
