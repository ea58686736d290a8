package jcalc

import (
	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

// Primitive protocol operations, one method per remote command used by
// this client. Each issues exactly one round trip; composition into
// domain-shaped operations happens in the invoker.

func (c *conn) negotiateIDSizes() (jdwp.IDSizes, error) {
	reply, err := c.roundTrip(jdwp.CmdSetVirtualMachine, jdwp.VMIDSizes, nil)
	if err != nil {
		return jdwp.IDSizes{}, err
	}
	if err := checkReply(reply); err != nil {
		return jdwp.IDSizes{}, err
	}
	sizes, err := jdwp.DecodeIDSizes(reply.Payload)
	if err != nil {
		return jdwp.IDSizes{}, payloadError("IDSizes", err)
	}
	return sizes, nil
}

func (c *conn) allThreads() ([]jdwp.ThreadID, error) {
	reply, err := c.roundTrip(jdwp.CmdSetVirtualMachine, jdwp.VMAllThreads, nil)
	if err != nil {
		return nil, err
	}
	if err := checkReply(reply); err != nil {
		return nil, err
	}
	r := jdwp.NewReader(reply.Payload, c.sizes)
	n := int(r.Uint32())
	threads := make([]jdwp.ThreadID, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		threads = append(threads, r.ObjectID())
	}
	if err := r.Err(); err != nil {
		return nil, payloadError("AllThreads", err)
	}
	return threads, nil
}

func (c *conn) classesBySignature(signature string) ([]jdwp.ClassInfo, error) {
	w := jdwp.NewWriter(c.sizes)
	w.String(signature)
	reply, err := c.roundTrip(jdwp.CmdSetVirtualMachine, jdwp.VMClassesBySignature, w.Bytes())
	if err != nil {
		return nil, err
	}
	if err := checkReply(reply); err != nil {
		return nil, err
	}
	r := jdwp.NewReader(reply.Payload, c.sizes)
	n := int(r.Uint32())
	classes := make([]jdwp.ClassInfo, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		classes = append(classes, jdwp.ClassInfo{
			RefTypeTag: r.Byte(),
			TypeID:     r.ReferenceTypeID(),
			Status:     r.Uint32(),
		})
	}
	if err := r.Err(); err != nil {
		return nil, payloadError("ClassesBySignature", err)
	}
	return classes, nil
}

func (c *conn) methods(ref jdwp.ReferenceTypeID) ([]jdwp.Method, error) {
	w := jdwp.NewWriter(c.sizes)
	w.ReferenceTypeID(ref)
	reply, err := c.roundTrip(jdwp.CmdSetReferenceType, jdwp.RefTypeMethods, w.Bytes())
	if err != nil {
		return nil, err
	}
	if err := checkReply(reply); err != nil {
		return nil, err
	}
	r := jdwp.NewReader(reply.Payload, c.sizes)
	n := int(r.Uint32())
	methods := make([]jdwp.Method, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		methods = append(methods, jdwp.Method{
			ID:        r.MethodID(),
			Name:      r.String(),
			Signature: r.String(),
			ModBits:   r.Uint32(),
		})
	}
	if err := r.Err(); err != nil {
		return nil, payloadError("Methods", err)
	}
	return methods, nil
}

func (c *conn) createString(s string) (jdwp.ObjectID, error) {
	w := jdwp.NewWriter(c.sizes)
	w.String(s)
	reply, err := c.roundTrip(jdwp.CmdSetVirtualMachine, jdwp.VMCreateString, w.Bytes())
	if err != nil {
		return 0, err
	}
	if err := checkReply(reply); err != nil {
		return 0, err
	}
	r := jdwp.NewReader(reply.Payload, c.sizes)
	id := r.ObjectID()
	if err := r.Err(); err != nil {
		return 0, payloadError("CreateString", err)
	}
	return id, nil
}

// invokeStatic runs a static method via ClassType.InvokeMethod. It returns
// the tagged return value and the exception object id (0 when none).
func (c *conn) invokeStatic(class jdwp.ReferenceTypeID, method jdwp.MethodID, args []jdwp.Value) (jdwp.Value, jdwp.ObjectID, error) {
	w := jdwp.NewWriter(c.sizes)
	w.ReferenceTypeID(class)
	w.ObjectID(c.thread)
	w.MethodID(method)
	w.Uint32(uint32(len(args)))
	for _, a := range args {
		jdwp.WriteTagged(w, a)
	}
	w.Uint32(0) // options
	reply, err := c.roundTrip(jdwp.CmdSetClassType, jdwp.ClassTypeInvokeMethod, w.Bytes())
	if err != nil {
		return jdwp.Value{}, 0, err
	}
	return decodeInvokeReply("ClassType.InvokeMethod", reply, c.sizes)
}

// invokeInstance runs an instance method via ObjectReference.InvokeMethod.
func (c *conn) invokeInstance(obj jdwp.ObjectID, class jdwp.ReferenceTypeID, method jdwp.MethodID, args []jdwp.Value) (jdwp.Value, jdwp.ObjectID, error) {
	w := jdwp.NewWriter(c.sizes)
	w.ObjectID(obj)
	w.ObjectID(c.thread)
	w.ReferenceTypeID(class)
	w.MethodID(method)
	w.Uint32(uint32(len(args)))
	for _, a := range args {
		jdwp.WriteTagged(w, a)
	}
	w.Uint32(0) // options
	reply, err := c.roundTrip(jdwp.CmdSetObjectReference, jdwp.ObjectRefInvokeMethod, w.Bytes())
	if err != nil {
		return jdwp.Value{}, 0, err
	}
	return decodeInvokeReply("ObjectReference.InvokeMethod", reply, c.sizes)
}

func decodeInvokeReply(cmd string, reply *jdwp.Packet, sizes jdwp.IDSizes) (jdwp.Value, jdwp.ObjectID, error) {
	if err := checkReply(reply); err != nil {
		return jdwp.Value{}, 0, err
	}
	r := jdwp.NewReader(reply.Payload, sizes)
	ret := jdwp.ReadTagged(r)
	_, exc := jdwp.ReadTaggedObjectID(r)
	if err := r.Err(); err != nil {
		return jdwp.Value{}, 0, payloadError(cmd, err)
	}
	return ret, exc, nil
}

func (c *conn) stringValue(obj jdwp.ObjectID) (string, error) {
	w := jdwp.NewWriter(c.sizes)
	w.ObjectID(obj)
	reply, err := c.roundTrip(jdwp.CmdSetStringReference, jdwp.StringRefValue, w.Bytes())
	if err != nil {
		return "", err
	}
	if err := checkReply(reply); err != nil {
		return "", err
	}
	r := jdwp.NewReader(reply.Payload, c.sizes)
	s := r.String()
	if err := r.Err(); err != nil {
		return "", payloadError("StringReference.Value", err)
	}
	return s, nil
}

// newArrayInstance creates a fresh array of the given array type via
// ArrayType.NewInstance.
func (c *conn) newArrayInstance(arrType jdwp.ReferenceTypeID, length int) (jdwp.ObjectID, error) {
	w := jdwp.NewWriter(c.sizes)
	w.ReferenceTypeID(arrType)
	w.Uint32(uint32(length))
	reply, err := c.roundTrip(jdwp.CmdSetArrayType, jdwp.ArrayTypeNewInstance, w.Bytes())
	if err != nil {
		return 0, err
	}
	if err := checkReply(reply); err != nil {
		return 0, err
	}
	r := jdwp.NewReader(reply.Payload, c.sizes)
	_, id := jdwp.ReadTaggedObjectID(r)
	if err := r.Err(); err != nil {
		return 0, payloadError("ArrayType.NewInstance", err)
	}
	return id, nil
}

// setArrayValues stores values into an existing array starting at
// firstIndex. Values are written untagged, as the protocol requires.
func (c *conn) setArrayValues(arr jdwp.ObjectID, firstIndex int, values []jdwp.Value) error {
	w := jdwp.NewWriter(c.sizes)
	w.ObjectID(arr)
	w.Uint32(uint32(firstIndex))
	w.Uint32(uint32(len(values)))
	for _, v := range values {
		jdwp.WriteUntagged(w, v)
	}
	reply, err := c.roundTrip(jdwp.CmdSetArrayReference, jdwp.ArrayRefSetValues, w.Bytes())
	if err != nil {
		return err
	}
	return checkReply(reply)
}
