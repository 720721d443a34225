package machine_test

import (
	"testing"

	"github.com/mna/ely/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    machine.Value
		want bool
	}{
		{"true bool", machine.Bool(true), true},
		{"false bool", machine.Bool(false), false},
		{"nonzero number", machine.Number(1), true},
		{"zero number", machine.Number(0), false},
		{"negative number", machine.Number(-1), true},
		{"nonempty string", machine.String("x"), true},
		{"empty string", machine.String(""), false},
		{"null", machine.Null, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, machine.Truthy(c.v))
		})
	}
}

func TestHashTableFalsy(t *testing.T) {
	require.False(t, machine.Truthy(machine.NewHashTable(0)))
}

func TestNumberStringFormatting(t *testing.T) {
	require.Equal(t, "3", machine.Number(3).String())
	require.Equal(t, "3.5", machine.Number(3.5).String())
	require.Equal(t, "-2", machine.Number(-2).String())
}
