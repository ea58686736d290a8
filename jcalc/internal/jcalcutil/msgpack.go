package jcalcutil

import (
	"bytes"
	"io"

	"github.com/ugorji/go/codec"
)

var handle codec.MsgpackHandle

// Unmarshal decodes the MessagePack-encoded data and stores the result in
// the value pointed to by v.
func Unmarshal(data []byte, v interface{}) error {
	return DecodeMsg(bytes.NewReader(data), v)
}

// DecodeMsg decodes one msgpack message read from r into v.
func DecodeMsg(r io.Reader, v interface{}) error {
	dec := codec.NewDecoder(r, &handle)
	return dec.Decode(v)
}

// Marshal returns the msgpack encoding of v.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	err := EncodeMsg(&buf, v)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeMsg encodes v into msgpack format and writes the output to w.
func EncodeMsg(w io.Writer, v interface{}) error {
	enc := codec.NewEncoder(w, &handle)
	return enc.Encode(v)
}
