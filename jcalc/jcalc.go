package jcalc

import (
	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

// Client evaluates arithmetic expressions by driving a remote JVM through
// its debug agent. One Client owns one connection; it is not safe for
// concurrent use, matching the strictly sequential request model.
type Client struct {
	conn *conn
	inv  *invoker
	log  logger
}

// Dial connects to the debug agent named by opts, performs the handshake
// and ID-size negotiation, and returns a ready Client. A nil opts connects
// to DefaultAddr with default settings.
func Dial(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = NewClientOptions("")
	}
	c, err := dialConn(opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: c,
		inv:  &invoker{c: c, log: c.log},
		log:  c.log,
	}, nil
}

// Eval parses expr and computes it inside the remote VM, returning the
// decimal text of the result. Parse failures are detected before any
// protocol traffic. A remote invocation failure (e.g. division by zero)
// leaves the connection usable for further expressions.
func (cl *Client) Eval(expr string) (string, error) {
	node, err := parseExpr(expr)
	if err != nil {
		return "", newError(ErrCodeParse, err)
	}
	obj, err := cl.eval(node)
	if err != nil {
		return "", err
	}
	return cl.inv.stringify(obj)
}

// eval walks the tree post-order, left before right. Every literal and
// every operator is one or more remote invocations; the result is a handle
// to a remote object.
func (cl *Client) eval(n Node) (jdwp.ObjectID, error) {
	switch n := n.(type) {
	case *IntegerLiteral:
		return cl.inv.boxInteger(n.Value)
	case *BinaryExpr:
		left, err := cl.eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := cl.eval(n.Right)
		if err != nil {
			return 0, err
		}
		return cl.inv.invokeBinaryOp(n.Op, left, right)
	default:
		return 0, newErrorf(ErrCodeParse, "unknown node type %T", n)
	}
}

// Close shuts down the connection. Remote object handles and cached
// identifiers are meaningless afterwards.
func (cl *Client) Close() error {
	return cl.conn.Close()
}
