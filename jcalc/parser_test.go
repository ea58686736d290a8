package jcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalLocal computes a parsed tree with native integers, which is enough to
// pin down precedence and associativity without a remote VM.
func evalLocal(t *testing.T, n Node) int64 {
	t.Helper()
	switch n := n.(type) {
	case *IntegerLiteral:
		return n.Value
	case *BinaryExpr:
		l, r := evalLocal(t, n.Left), evalLocal(t, n.Right)
		switch n.Op {
		case OpAdd:
			return l + r
		case OpSubtract:
			return l - r
		case OpMultiply:
			return l * r
		case OpDivide:
			return l / r
		}
	}
	t.Fatalf("unexpected node %T", n)
	return 0
}

func TestParseExpr(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{"1 + 1", 2},
		{"2 * 3 + 4", 10},
		{"10 + 30 * 3 / 5", 28},
		{"(10 + 30) * 3 / 5", 24},
		{"2 - 3", -1},
		{"10 - 2 - 3", 5},
		{"8 / 2 / 2", 2},
		{"100", 100},
		{"  7\t", 7},
		{"((((5))))", 5},
		{"(1 + 2) * (3 + 4)", 21},
		{"1+2*3", 7},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			n, err := parseExpr(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, evalLocal(t, n))
		})
	}
}

func TestParseExpr_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		pos   int // 0-based expected ParseError.Pos, -1 to skip the check
	}{
		{"empty", "", 0},
		{"trailing operator", "1 +", 3},
		{"unclosed paren", "(1 + 2", 6},
		{"letter", "1 + a", 4},
		{"adjacent literals", "1 2", 2},
		{"leading operator", "* 3", 0},
		{"unary minus unsupported", "-1", 0},
		{"overflow", "99999999999999999999999", 0},
		{"stray close paren", "1) + 2", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseExpr(tc.input)
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			if tc.pos >= 0 {
				assert.Equal(t, tc.pos, perr.Pos)
			}
			assert.NotEmpty(t, perr.Error())
		})
	}
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Pos: 4, Msg: "unexpected 'a'"}
	// Positions are reported 1-based.
	assert.Equal(t, "position 5: unexpected 'a'", err.Error())
}

func TestOp_Strings(t *testing.T) {
	for op, want := range map[Op][2]string{
		OpAdd:      {"+", "add"},
		OpSubtract: {"-", "subtract"},
		OpMultiply: {"*", "multiply"},
		OpDivide:   {"/", "divide"},
	} {
		assert.Equal(t, want[0], op.String())
		assert.Equal(t, want[1], op.methodName())
	}
}
