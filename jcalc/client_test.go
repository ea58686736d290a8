package jcalc_test

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/jcalc/jcalc-go/jcalc"
	"github.com/jcalc/jcalc-go/jcalc/internal/jcalcutil"
	"github.com/jcalc/jcalc-go/jcalc/jcalctest"
	"github.com/jcalc/jcalc-go/jcalc/jdwp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestClient(t *testing.T, agent *jcalctest.Agent, opts *jcalc.ClientOptions) *jcalc.Client {
	t.Helper()
	if opts == nil {
		opts = jcalc.NewClientOptions("")
	}
	opts.Dial = agent.Dial
	client, err := jcalc.Dial(opts)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClient_Eval(t *testing.T) {
	client := dialTestClient(t, jcalctest.NewAgent(), nil)

	cases := []struct {
		expr string
		want string
	}{
		{"1 + 1", "2"},
		{"2 * 3 + 4", "10"},
		{"10 + 30 * 3 / 5", "28"},
		{"(10 + 30) * 3 / 5", "24"},
		{"1 - 2", "-1"},
		{"0 * 7", "0"},
		{"7 / 2", "3"},
		// Arithmetic happens remotely on arbitrary precision integers, so
		// results may exceed the 64-bit range of the literals.
		{"9223372036854775807 + 1", "9223372036854775808"},
		{"9223372036854775807 * 9223372036854775807", "85070591730234615847396907784232501249"},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := client.Eval(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClient_Eval_DivideByZero(t *testing.T) {
	client := dialTestClient(t, jcalctest.NewAgent(), nil)

	_, err := client.Eval("100 / 0")
	require.Error(t, err)
	var cerr *jcalc.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, jcalc.ErrCodeRemoteInvocation, cerr.Code)
	assert.Contains(t, err.Error(), "divide by zero")

	// The remote exception aborts only that expression; the session stays
	// usable.
	got, err := client.Eval("1 + 1")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestClient_Eval_ParseError(t *testing.T) {
	agent := jcalctest.NewAgent()
	client := dialTestClient(t, agent, nil)
	before := agent.RequestCount()

	_, err := client.Eval("1 +")
	require.Error(t, err)
	var cerr *jcalc.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, jcalc.ErrCodeParse, cerr.Code)
	var perr *jcalc.ParseError
	require.ErrorAs(t, err, &perr)

	// Malformed input must be rejected before any packet goes out.
	assert.Equal(t, before, agent.RequestCount())
}

func TestClient_Eval_CachedResolution(t *testing.T) {
	agent := jcalctest.NewAgent()
	client := dialTestClient(t, agent, nil)

	_, err := client.Eval("3 * 4")
	require.NoError(t, err)
	resolved := agent.ResolutionCount()
	assert.Greater(t, resolved, 0)

	// Same vocabulary again: every class and method id must come from the
	// cache now.
	for i := 0; i < 5; i++ {
		_, err := client.Eval("3 * 4")
		require.NoError(t, err)
	}
	assert.Equal(t, resolved, agent.ResolutionCount())

	// A new operator needs exactly one more lookup round.
	_, err = client.Eval("3 - 4")
	require.NoError(t, err)
	assert.Greater(t, agent.ResolutionCount(), resolved)
}

func TestClient_Eval_AfterClose(t *testing.T) {
	client := dialTestClient(t, jcalctest.NewAgent(), nil)
	require.NoError(t, client.Close())

	_, err := client.Eval("1 + 1")
	require.Error(t, err)
}

func TestDial_HandshakeRejected(t *testing.T) {
	agent := jcalctest.NewAgent()
	agent.HandshakeReply = "HTTP/1.1 400 B" // same length, wrong marker

	opts := jcalc.NewClientOptions("")
	opts.Dial = agent.Dial
	opts.HandshakeTimeout = time.Second

	_, err := jcalc.Dial(opts)
	require.Error(t, err)
	var cerr *jcalc.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, jcalc.ErrCodeConnect, cerr.Code)
	// Nothing framed goes out after a rejected handshake.
	assert.Equal(t, 0, agent.RequestCount())
}

func TestDial_Refused(t *testing.T) {
	// Reserve a port and close the listener so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	opts := jcalc.NewClientOptions(addr)
	opts.HandshakeTimeout = time.Second

	_, err = jcalc.Dial(opts)
	require.Error(t, err)
	var cerr *jcalc.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, jcalc.ErrCodeConnect, cerr.Code)
}

func TestClient_Eval_RequestTimeout(t *testing.T) {
	agent := jcalctest.NewAgent()
	// Answer the two negotiation requests, then go silent.
	agent.DropAfter = 2

	opts := jcalc.NewClientOptions("")
	opts.RequestTimeout = 100 * time.Millisecond
	client := dialTestClient(t, agent, opts)

	_, err := client.Eval("1 + 1")
	require.Error(t, err)
	var cerr *jcalc.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, jcalc.ErrCodeTimeout, cerr.Code)

	// A timed-out session is closed; later calls fail fast.
	_, err = client.Eval("2 + 2")
	require.Error(t, err)
}

func TestClient_TraceWriter(t *testing.T) {
	var buf bytes.Buffer
	agent := jcalctest.NewAgent()
	opts := jcalc.NewClientOptions("")
	opts.TraceWriter = &buf

	client := dialTestClient(t, agent, opts)
	_, err := client.Eval("1 + 1")
	require.NoError(t, err)

	var records []jcalc.TraceRecord
	for {
		var rec jcalc.TraceRecord
		if err := jcalcutil.DecodeMsg(&buf, &rec); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		records = append(records, rec)
	}
	require.NotEmpty(t, records)

	// Dial starts with ID-size negotiation.
	assert.Equal(t, "send", records[0].Dir)
	assert.Equal(t, byte(jdwp.CmdSetVirtualMachine), records[0].CmdSet)
	assert.Equal(t, byte(jdwp.VMIDSizes), records[0].Cmd)

	var sends, recvs int
	seen := make(map[uint32]bool)
	var lastID uint32
	for _, rec := range records {
		switch rec.Dir {
		case "send":
			sends++
			// Packet ids are strictly increasing and never reused.
			assert.False(t, seen[rec.ID], "reused packet id %d", rec.ID)
			assert.Greater(t, rec.ID, lastID)
			seen[rec.ID] = true
			lastID = rec.ID
		case "recv":
			recvs++
			assert.True(t, seen[rec.ID], "reply to unknown id %d", rec.ID)
		default:
			t.Fatalf("unexpected direction %q", rec.Dir)
		}
	}
	assert.Equal(t, sends, recvs)
}

// A reply whose id matches no outstanding request while one is waiting
// means correlation state has diverged; the waiter must get a protocol
// failure rather than hang.
func TestDial_UnmatchedReplyID(t *testing.T) {
	clientEnd, serverEnd := net.Pipe()

	go func() {
		defer serverEnd.Close()
		if err := jdwp.AcceptHandshake(serverEnd); err != nil {
			return
		}
		req, err := jdwp.ReadPacket(serverEnd)
		if err != nil {
			return
		}
		w := jdwp.NewWriter(jdwp.DefaultIDSizes)
		for i := 0; i < 5; i++ {
			w.Uint32(8)
		}
		reply := &jdwp.Packet{ID: req.ID + 1000, Flags: jdwp.FlagReply, Payload: w.Bytes()}
		jdwp.WritePacket(serverEnd, reply)
	}()

	opts := jcalc.NewClientOptions("")
	opts.RequestTimeout = time.Second
	opts.Dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		return clientEnd, nil
	}

	_, err := jcalc.Dial(opts)
	require.Error(t, err)
	var cerr *jcalc.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, jcalc.ErrCodeConnect, cerr.Code)
	assert.Contains(t, err.Error(), "matches no outstanding request")
}

// Composite event packets may arrive from the VM at any point; the client
// never requests events and must drop them without disturbing reply
// correlation.
func TestDial_ToleratesEventTraffic(t *testing.T) {
	clientEnd, serverEnd := net.Pipe()

	go func() {
		defer serverEnd.Close()
		if err := jdwp.AcceptHandshake(serverEnd); err != nil {
			return
		}
		for {
			req, err := jdwp.ReadPacket(serverEnd)
			if err != nil {
				return
			}

			// An unsolicited composite event ahead of every reply.
			event := &jdwp.Packet{
				ID:      0x7fffffff,
				CmdSet:  jdwp.CmdSetEvent,
				Cmd:     jdwp.EventComposite,
				Payload: []byte{2, 0, 0, 0, 0},
			}
			if err := jdwp.WritePacket(serverEnd, event); err != nil {
				return
			}

			w := jdwp.NewWriter(jdwp.DefaultIDSizes)
			switch {
			case req.CmdSet == jdwp.CmdSetVirtualMachine && req.Cmd == jdwp.VMIDSizes:
				for i := 0; i < 5; i++ {
					w.Uint32(8)
				}
			case req.CmdSet == jdwp.CmdSetVirtualMachine && req.Cmd == jdwp.VMAllThreads:
				w.Uint32(1)
				w.ObjectID(jcalctest.ThreadID)
			default:
				continue
			}
			reply := &jdwp.Packet{ID: req.ID, Flags: jdwp.FlagReply, Payload: w.Bytes()}
			if err := jdwp.WritePacket(serverEnd, reply); err != nil {
				return
			}
		}
	}()

	opts := jcalc.NewClientOptions("")
	opts.RequestTimeout = time.Second
	opts.Dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		return clientEnd, nil
	}

	client, err := jcalc.Dial(opts)
	require.NoError(t, err)
	require.NoError(t, client.Close())
}
