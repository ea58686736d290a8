package jcalcutil_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/jcalc/jcalc-go/jcalc/internal/jcalcutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `codec:"name"`
	Count int    `codec:"count"`
	Raw   []byte `codec:"raw,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := sample{Name: "idsizes", Count: 5, Raw: []byte{0, 0, 0, 8}}
	data, err := jcalcutil.Marshal(&in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, jcalcutil.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestEncodeDecodeStream(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		require.NoError(t, jcalcutil.EncodeMsg(&buf, &sample{Name: "rec", Count: i}))
	}

	for i := 0; i < 3; i++ {
		var out sample
		require.NoError(t, jcalcutil.DecodeMsg(&buf, &out))
		assert.Equal(t, i, out.Count)
	}

	var out sample
	err := jcalcutil.DecodeMsg(&buf, &out)
	assert.ErrorIs(t, err, io.EOF)
}
