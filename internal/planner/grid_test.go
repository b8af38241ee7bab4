package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridShape(t *testing.T) {
	assert.Len(t, Days, 6)
	assert.Len(t, Blocks, 9)
	for i, b := range Blocks {
		assert.Equal(t, i, b.Index())
	}
	assert.Equal(t, -1, Block("07:00-08:00").Index())
	assert.Equal(t, "08:30", Blocks[0].Start())
	assert.Equal(t, "09:30", Blocks[0].End())
}

func TestParseDay(t *testing.T) {
	cases := map[string]Day{
		"Lunes":      Lunes,
		"  lunes ":   Lunes,
		"MIÉRCOLES":  Miercoles,
		"miercoles":  Miercoles,
		"Sabado":     Sabado,
		"sábado":     Sabado,
		"viernes":    Viernes,
	}
	for in, want := range cases {
		got, ok := ParseDay(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseDay("Domingo")
	assert.False(t, ok)
}

func TestParseBlock(t *testing.T) {
	b, ok := ParseBlock("08:30 - 09:30")
	require.True(t, ok)
	assert.Equal(t, Blocks[0], b)

	b, ok = ParseBlock("17:55-18:55")
	require.True(t, ok)
	assert.Equal(t, Blocks[8], b)

	_, ok = ParseBlock("19:00-20:00")
	assert.False(t, ok)
}

func TestParseSlot_Invalid(t *testing.T) {
	_, err := ParseSlot("Domingo", "08:30-09:30")
	assert.True(t, errors.Is(err, ErrInvalidSlot))

	_, err = ParseSlot("Lunes", "mañana")
	assert.True(t, errors.Is(err, ErrInvalidSlot))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "calculo i", Fold("  Cálculo I "))
	assert.Equal(t, "mat101", Fold("MAT101"))
}

func TestColorFor_Deterministic(t *testing.T) {
	names := []string{"Cálculo I", "Álgebra", "Programación", "", "Física General"}
	for _, n := range names {
		c := ColorFor(n)
		assert.Equal(t, c, ColorFor(n), "同名应同色: %q", n)
		assert.Contains(t, Palette, c)
	}
}
