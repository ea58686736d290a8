package jdwp

// Remote identifiers are opaque handles minted by the debuggee. Their wire
// width is negotiated per connection (see IDSizes); in memory they are kept
// as uint64 regardless of the negotiated width.

// ObjectID names a live object or array inside the remote VM.
type ObjectID uint64

// ReferenceTypeID names a loaded class inside the remote VM.
type ReferenceTypeID uint64

// MethodID names a method declared by a reference type. It is only
// meaningful together with the ReferenceTypeID it was resolved against.
type MethodID uint64

// FieldID names a field declared by a reference type.
type FieldID uint64

// FrameID names a stack frame of a suspended thread.
type FrameID uint64

// ThreadID is an ObjectID that happens to reference a thread object.
type ThreadID = ObjectID

// Method describes one entry of a ReferenceType.Methods reply.
type Method struct {
	ID        MethodID
	Name      string
	Signature string
	ModBits   uint32
}

// ClassInfo describes one entry of a VirtualMachine.ClassesBySignature
// reply.
type ClassInfo struct {
	RefTypeTag byte
	TypeID     ReferenceTypeID
	Status     uint32
}
