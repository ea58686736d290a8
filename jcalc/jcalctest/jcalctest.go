// Package jcalctest provides helpers for testing the jcalc client against
// an in-process fake of a JVM debug agent. The fake speaks enough JDWP to
// carry a whole evaluation session: handshake, ID sizes, thread listing,
// class and method lookup, reflective invocation (with real big-integer
// arithmetic behind it), string extraction and array construction.
package jcalctest

import (
	"io"
	"math/big"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

// Fixed identifiers minted by the fake agent.
const (
	ThreadID jdwp.ThreadID = 0x1000

	BigIntegerClass  jdwp.ReferenceTypeID = 0x2001
	ThrowableClass   jdwp.ReferenceTypeID = 0x2002
	ObjectArrayClass jdwp.ReferenceTypeID = 0x2003
)

const (
	methodValueOf jdwp.MethodID = 0x11 + iota
	methodAdd
	methodSubtract
	methodMultiply
	methodDivide
	methodToStringRadix
	methodToString
	methodGetMessage
)

// classStatus is VERIFIED|PREPARED|INITIALIZED.
const classStatus = 0x07

// Agent is an in-process fake debug agent. Zero value is not usable; use
// NewAgent. One Agent may serve several connections over its lifetime,
// though the client under test uses one.
type Agent struct {
	// Sizes are the identifier widths the agent negotiates. Defaults to
	// jdwp.DefaultIDSizes.
	Sizes jdwp.IDSizes

	// HandshakeReply overrides the handshake echo when non-empty, to
	// provoke connect failures.
	HandshakeReply string

	// DropAfter, when positive, makes the agent stop answering after it has
	// replied to that many requests, to provoke request timeouts. Set before
	// serving.
	DropAfter int

	requests    int64
	resolutions int64

	mtx     sync.Mutex
	nextObj uint64
	objects map[jdwp.ObjectID]*big.Int
	strings map[jdwp.ObjectID]string
	arrays  map[jdwp.ObjectID][]jdwp.ObjectID
	excMsgs map[jdwp.ObjectID]string
}

func NewAgent() *Agent {
	return &Agent{
		Sizes:   jdwp.DefaultIDSizes,
		nextObj: 0x10000,
		objects: make(map[jdwp.ObjectID]*big.Int),
		strings: make(map[jdwp.ObjectID]string),
		arrays:  make(map[jdwp.ObjectID][]jdwp.ObjectID),
		excMsgs: make(map[jdwp.ObjectID]string),
	}
}

// RequestCount reports how many command packets the agent has received.
func (a *Agent) RequestCount() int {
	return int(atomic.LoadInt64(&a.requests))
}

// ResolutionCount reports how many class/method lookup commands
// (ClassesBySignature, Methods) the agent has received.
func (a *Agent) ResolutionCount() int {
	return int(atomic.LoadInt64(&a.resolutions))
}

// Dial is a jcalc.ClientOptions.Dial replacement connecting over an
// in-memory pipe to a goroutine serving this agent.
func (a *Agent) Dial(network, addr string, timeout time.Duration) (net.Conn, error) {
	client, server := net.Pipe()
	go a.Serve(server)
	return client, nil
}

// Serve runs the agent side of one connection until the peer goes away.
func (a *Agent) Serve(conn net.Conn) {
	defer conn.Close()

	marker := make([]byte, len(jdwp.Handshake))
	if _, err := io.ReadFull(conn, marker); err != nil {
		return
	}
	echo := jdwp.Handshake
	if a.HandshakeReply != "" {
		echo = a.HandshakeReply
	}
	if _, err := conn.Write([]byte(echo)); err != nil {
		return
	}

	for {
		p, err := jdwp.ReadPacket(conn)
		if err != nil {
			return
		}
		n := atomic.AddInt64(&a.requests, 1)
		if a.DropAfter > 0 && int(n) > a.DropAfter {
			continue
		}
		reply := a.handle(p)
		reply.ID = p.ID
		reply.Flags = jdwp.FlagReply
		if err := jdwp.WritePacket(conn, reply); err != nil {
			return
		}
	}
}

func (a *Agent) handle(p *jdwp.Packet) *jdwp.Packet {
	switch {
	case p.CmdSet == jdwp.CmdSetVirtualMachine && p.Cmd == jdwp.VMIDSizes:
		return a.idSizes()
	case p.CmdSet == jdwp.CmdSetVirtualMachine && p.Cmd == jdwp.VMAllThreads:
		return a.allThreads()
	case p.CmdSet == jdwp.CmdSetVirtualMachine && p.Cmd == jdwp.VMClassesBySignature:
		atomic.AddInt64(&a.resolutions, 1)
		return a.classesBySignature(p)
	case p.CmdSet == jdwp.CmdSetVirtualMachine && p.Cmd == jdwp.VMCreateString:
		return a.createString(p)
	case p.CmdSet == jdwp.CmdSetReferenceType && p.Cmd == jdwp.RefTypeMethods:
		atomic.AddInt64(&a.resolutions, 1)
		return a.methods(p)
	case p.CmdSet == jdwp.CmdSetClassType && p.Cmd == jdwp.ClassTypeInvokeMethod:
		return a.invokeStatic(p)
	case p.CmdSet == jdwp.CmdSetObjectReference && p.Cmd == jdwp.ObjectRefInvokeMethod:
		return a.invokeInstance(p)
	case p.CmdSet == jdwp.CmdSetStringReference && p.Cmd == jdwp.StringRefValue:
		return a.stringValue(p)
	case p.CmdSet == jdwp.CmdSetArrayType && p.Cmd == jdwp.ArrayTypeNewInstance:
		return a.newArray(p)
	case p.CmdSet == jdwp.CmdSetArrayReference && p.Cmd == jdwp.ArrayRefSetValues:
		return a.setArrayValues(p)
	default:
		return errorReply(jdwp.ErrNotImplemented)
	}
}

func errorReply(code uint16) *jdwp.Packet {
	return &jdwp.Packet{ErrorCode: code}
}

func okReply(w *jdwp.Writer) *jdwp.Packet {
	return &jdwp.Packet{Payload: w.Bytes()}
}

func (a *Agent) newObjectID() jdwp.ObjectID {
	a.nextObj++
	return jdwp.ObjectID(a.nextObj)
}

func (a *Agent) newBigInt(v *big.Int) jdwp.ObjectID {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	id := a.newObjectID()
	a.objects[id] = v
	return id
}

func (a *Agent) newString(s string) jdwp.ObjectID {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	id := a.newObjectID()
	a.strings[id] = s
	return id
}

func (a *Agent) newException(msg string) jdwp.ObjectID {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	id := a.newObjectID()
	a.excMsgs[id] = msg
	return id
}

func (a *Agent) idSizes() *jdwp.Packet {
	w := jdwp.NewWriter(a.Sizes)
	w.Uint32(uint32(a.Sizes.FieldID))
	w.Uint32(uint32(a.Sizes.MethodID))
	w.Uint32(uint32(a.Sizes.ObjectID))
	w.Uint32(uint32(a.Sizes.ReferenceTypeID))
	w.Uint32(uint32(a.Sizes.FrameID))
	return okReply(w)
}

func (a *Agent) allThreads() *jdwp.Packet {
	w := jdwp.NewWriter(a.Sizes)
	w.Uint32(1)
	w.ObjectID(ThreadID)
	return okReply(w)
}

func (a *Agent) classesBySignature(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	sig := r.String()
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	var ref jdwp.ReferenceTypeID
	switch sig {
	case "Ljava/math/BigInteger;":
		ref = BigIntegerClass
	case "Ljava/lang/Throwable;":
		ref = ThrowableClass
	case "[Ljava/lang/Object;":
		ref = ObjectArrayClass
	default:
		w := jdwp.NewWriter(a.Sizes)
		w.Uint32(0)
		return okReply(w)
	}
	w := jdwp.NewWriter(a.Sizes)
	w.Uint32(1)
	w.Byte(1) // CLASS
	w.ReferenceTypeID(ref)
	w.Uint32(classStatus)
	return okReply(w)
}

func (a *Agent) createString(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	s := r.String()
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	w := jdwp.NewWriter(a.Sizes)
	w.ObjectID(a.newString(s))
	return okReply(w)
}

type methodDecl struct {
	id        jdwp.MethodID
	name      string
	signature string
	modBits   uint32
}

// modBits: 0x1 public, 0x8 static.
var classMethods = map[jdwp.ReferenceTypeID][]methodDecl{
	BigIntegerClass: {
		{methodValueOf, "valueOf", "(J)Ljava/math/BigInteger;", 0x9},
		{methodAdd, "add", "(Ljava/math/BigInteger;)Ljava/math/BigInteger;", 0x1},
		{methodSubtract, "subtract", "(Ljava/math/BigInteger;)Ljava/math/BigInteger;", 0x1},
		{methodMultiply, "multiply", "(Ljava/math/BigInteger;)Ljava/math/BigInteger;", 0x1},
		{methodDivide, "divide", "(Ljava/math/BigInteger;)Ljava/math/BigInteger;", 0x1},
		// Radix overload first: name-only lookups must disambiguate by
		// descriptor to get the niladic toString.
		{methodToStringRadix, "toString", "(I)Ljava/lang/String;", 0x1},
		{methodToString, "toString", "()Ljava/lang/String;", 0x1},
	},
	ThrowableClass: {
		{methodGetMessage, "getMessage", "()Ljava/lang/String;", 0x1},
	},
	ObjectArrayClass: {},
}

func (a *Agent) methods(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	ref := r.ReferenceTypeID()
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	decls, ok := classMethods[ref]
	if !ok {
		return errorReply(jdwp.ErrInvalidClass)
	}
	w := jdwp.NewWriter(a.Sizes)
	w.Uint32(uint32(len(decls)))
	for _, m := range decls {
		w.MethodID(m.id)
		w.String(m.name)
		w.String(m.signature)
		w.Uint32(m.modBits)
	}
	return okReply(w)
}

func (a *Agent) invokeStatic(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	class := r.ReferenceTypeID()
	thread := r.ObjectID()
	method := r.MethodID()
	args := readArguments(r)
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	if thread != ThreadID {
		return errorReply(jdwp.ErrInvalidThread)
	}
	if class != BigIntegerClass || method != methodValueOf {
		return errorReply(jdwp.ErrInvalidMethodID)
	}
	if len(args) != 1 || args[0].Tag != jdwp.TagLong {
		return errorReply(jdwp.ErrIllegalArgument)
	}
	obj := a.newBigInt(big.NewInt(args[0].Long))
	return invokeReply(a.Sizes, jdwp.ObjectValue(obj), 0)
}

func (a *Agent) invokeInstance(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	obj := r.ObjectID()
	thread := r.ObjectID()
	class := r.ReferenceTypeID()
	method := r.MethodID()
	args := readArguments(r)
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	if thread != ThreadID {
		return errorReply(jdwp.ErrInvalidThread)
	}

	switch {
	case class == ThrowableClass && method == methodGetMessage:
		a.mtx.Lock()
		msg, ok := a.excMsgs[obj]
		a.mtx.Unlock()
		if !ok {
			return errorReply(jdwp.ErrInvalidObject)
		}
		v := jdwp.Value{Tag: jdwp.TagString, Object: a.newString(msg)}
		return invokeReply(a.Sizes, v, 0)

	case class == BigIntegerClass && method == methodToString:
		a.mtx.Lock()
		v, ok := a.objects[obj]
		a.mtx.Unlock()
		if !ok {
			return errorReply(jdwp.ErrInvalidObject)
		}
		sv := jdwp.Value{Tag: jdwp.TagString, Object: a.newString(v.String())}
		return invokeReply(a.Sizes, sv, 0)

	case class == BigIntegerClass:
		return a.arith(obj, method, args)
	}
	return errorReply(jdwp.ErrInvalidMethodID)
}

func (a *Agent) arith(obj jdwp.ObjectID, method jdwp.MethodID, args []jdwp.Value) *jdwp.Packet {
	if len(args) != 1 || !jdwp.IsObjectTag(args[0].Tag) {
		return errorReply(jdwp.ErrIllegalArgument)
	}
	a.mtx.Lock()
	left, lok := a.objects[obj]
	right, rok := a.objects[args[0].Object]
	a.mtx.Unlock()
	if !lok || !rok {
		return errorReply(jdwp.ErrInvalidObject)
	}

	out := new(big.Int)
	switch method {
	case methodAdd:
		out.Add(left, right)
	case methodSubtract:
		out.Sub(left, right)
	case methodMultiply:
		out.Mul(left, right)
	case methodDivide:
		if right.Sign() == 0 {
			exc := a.newException("BigInteger divide by zero")
			return invokeReply(a.Sizes, jdwp.ObjectValue(0), exc)
		}
		out.Quo(left, right)
	default:
		return errorReply(jdwp.ErrInvalidMethodID)
	}
	return invokeReply(a.Sizes, jdwp.ObjectValue(a.newBigInt(out)), 0)
}

func (a *Agent) stringValue(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	obj := r.ObjectID()
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	a.mtx.Lock()
	s, ok := a.strings[obj]
	a.mtx.Unlock()
	if !ok {
		return errorReply(jdwp.ErrInvalidString)
	}
	w := jdwp.NewWriter(a.Sizes)
	w.String(s)
	return okReply(w)
}

func (a *Agent) newArray(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	arrType := r.ReferenceTypeID()
	length := int(r.Uint32())
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	if arrType != ObjectArrayClass {
		return errorReply(jdwp.ErrInvalidClass)
	}
	a.mtx.Lock()
	id := a.newObjectID()
	a.arrays[id] = make([]jdwp.ObjectID, length)
	a.mtx.Unlock()

	w := jdwp.NewWriter(a.Sizes)
	w.Byte(jdwp.TagArray)
	w.ObjectID(id)
	return okReply(w)
}

func (a *Agent) setArrayValues(p *jdwp.Packet) *jdwp.Packet {
	r := jdwp.NewReader(p.Payload, a.Sizes)
	arr := r.ObjectID()
	first := int(r.Uint32())
	n := int(r.Uint32())
	// The fake only stores object arrays, so elements are untagged object
	// identifiers.
	ids := make([]jdwp.ObjectID, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		ids = append(ids, r.ObjectID())
	}
	if r.Err() != nil {
		return errorReply(jdwp.ErrInternal)
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	stored, ok := a.arrays[arr]
	if !ok {
		return errorReply(jdwp.ErrInvalidArray)
	}
	if first < 0 || first+n > len(stored) {
		return errorReply(jdwp.ErrInvalidLength)
	}
	copy(stored[first:], ids)
	return okReply(jdwp.NewWriter(a.Sizes))
}

// ArrayValues returns the stored contents of a fake array object.
func (a *Agent) ArrayValues(arr jdwp.ObjectID) ([]jdwp.ObjectID, bool) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	v, ok := a.arrays[arr]
	return v, ok
}

func readArguments(r *jdwp.Reader) []jdwp.Value {
	n := int(r.Uint32())
	args := make([]jdwp.Value, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		args = append(args, jdwp.ReadTagged(r))
	}
	r.Uint32() // options
	return args
}

func invokeReply(sizes jdwp.IDSizes, ret jdwp.Value, exc jdwp.ObjectID) *jdwp.Packet {
	w := jdwp.NewWriter(sizes)
	jdwp.WriteTagged(w, ret)
	w.Byte(jdwp.TagObject)
	w.ObjectID(exc)
	return okReply(w)
}
