package jdwp

import "fmt"

// IDSizes carries the identifier widths negotiated once per connection via
// VirtualMachine.IDSizes. All later identifier encoding uses these widths;
// the struct is never mutated after negotiation.
type IDSizes struct {
	FieldID         int
	MethodID        int
	ObjectID        int
	ReferenceTypeID int
	FrameID         int
}

// DefaultIDSizes matches what HotSpot negotiates in practice. Used by test
// fakes; real connections always take the negotiated values.
var DefaultIDSizes = IDSizes{
	FieldID:         8,
	MethodID:        8,
	ObjectID:        8,
	ReferenceTypeID: 8,
	FrameID:         8,
}

// DecodeIDSizes parses a VirtualMachine.IDSizes reply payload.
func DecodeIDSizes(payload []byte) (IDSizes, error) {
	r := NewReader(payload, IDSizes{})
	s := IDSizes{
		FieldID:         int(r.Uint32()),
		MethodID:        int(r.Uint32()),
		ObjectID:        int(r.Uint32()),
		ReferenceTypeID: int(r.Uint32()),
		FrameID:         int(r.Uint32()),
	}
	if err := r.Err(); err != nil {
		return IDSizes{}, err
	}
	for _, w := range []int{s.FieldID, s.MethodID, s.ObjectID, s.ReferenceTypeID, s.FrameID} {
		if w < 1 || w > 8 {
			return IDSizes{}, fmt.Errorf("jdwp: unsupported identifier width %d", w)
		}
	}
	return s, nil
}
