package jdwp

import "fmt"

// Value tags, as used in tagged values, tagged object IDs and array
// element descriptors.
const (
	TagArray       = '['
	TagByte        = 'B'
	TagChar        = 'C'
	TagObject      = 'L'
	TagFloat       = 'F'
	TagDouble      = 'D'
	TagInt         = 'I'
	TagLong        = 'J'
	TagShort       = 'S'
	TagVoid        = 'V'
	TagBoolean     = 'Z'
	TagString      = 's'
	TagThread      = 't'
	TagThreadGroup = 'g'
	TagClassLoader = 'l'
	TagClassObject = 'c'
)

// Value is the tagged union carried by invocation arguments and results.
// Primitive tags use Long; object-kind tags use Object.
type Value struct {
	Tag    byte
	Long   int64
	Object ObjectID
}

// LongValue returns a primitive long value.
func LongValue(n int64) Value {
	return Value{Tag: TagLong, Long: n}
}

// ObjectValue returns an object reference value.
func ObjectValue(id ObjectID) Value {
	return Value{Tag: TagObject, Object: id}
}

// IsObjectTag reports whether the tag's wire representation is an object
// identifier rather than primitive bytes.
func IsObjectTag(tag byte) bool {
	switch tag {
	case TagArray, TagObject, TagString, TagThread, TagThreadGroup, TagClassLoader, TagClassObject:
		return true
	}
	return false
}

// IsNull reports whether the value is an object-kind value referencing
// nothing.
func (v Value) IsNull() bool {
	return IsObjectTag(v.Tag) && v.Object == 0
}

func (v Value) String() string {
	if IsObjectTag(v.Tag) {
		return fmt.Sprintf("%c@%d", v.Tag, v.Object)
	}
	return fmt.Sprintf("%c:%d", v.Tag, v.Long)
}

// primitiveWidth gives the wire width of a primitive tag's untagged form.
func primitiveWidth(tag byte) (int, bool) {
	switch tag {
	case TagVoid:
		return 0, true
	case TagByte, TagBoolean:
		return 1, true
	case TagChar, TagShort:
		return 2, true
	case TagInt, TagFloat:
		return 4, true
	case TagLong, TagDouble:
		return 8, true
	}
	return 0, false
}

// WriteTagged appends v in tagged form: tag byte, then the untagged bytes.
func WriteTagged(w *Writer, v Value) {
	w.Byte(v.Tag)
	WriteUntagged(w, v)
}

// WriteUntagged appends only the value bytes, without the leading tag.
func WriteUntagged(w *Writer, v Value) {
	if IsObjectTag(v.Tag) {
		w.ObjectID(v.Object)
		return
	}
	if width, ok := primitiveWidth(v.Tag); ok {
		for i := width - 1; i >= 0; i-- {
			w.Byte(byte(uint64(v.Long) >> (8 * i)))
		}
		return
	}
	// Unknown tags cannot be sized; encode nothing and let the remote
	// reject the malformed command.
	w.Byte(0)
}

// ReadTagged consumes a tagged value.
func ReadTagged(r *Reader) Value {
	tag := r.Byte()
	return ReadUntagged(r, tag)
}

// ReadUntagged consumes the value bytes for a known tag.
func ReadUntagged(r *Reader, tag byte) Value {
	v := Value{Tag: tag}
	if IsObjectTag(tag) {
		v.Object = r.ObjectID()
		return v
	}
	width, ok := primitiveWidth(tag)
	if !ok {
		r.err = fmt.Errorf("jdwp: unknown value tag %q", tag)
		return v
	}
	var n uint64
	for i := 0; i < width; i++ {
		n = n<<8 | uint64(r.Byte())
	}
	v.Long = int64(n)
	return v
}

// ReadTaggedObjectID consumes a tagged object identifier, as used for the
// exception slot of invocation replies and array-creation replies.
func ReadTaggedObjectID(r *Reader) (byte, ObjectID) {
	tag := r.Byte()
	return tag, r.ObjectID()
}
