package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	v, ok := Sanitize("12 <b>Main</b>   St &amp; Co", true)
	assert.True(t, ok)
	assert.Equal(t, "12 Main St & Co", v)

	_, ok = Sanitize(nil, false)
	assert.False(t, ok)
}

func TestBoolOrFalse(t *testing.T) {
	v, ok := BoolOrFalse(nil, false)
	assert.True(t, ok)
	assert.Equal(t, false, v)

	v, _ = BoolOrFalse("yes", true)
	assert.Equal(t, true, v)
}

func TestMonthAbbrev(t *testing.T) {
	for in, want := range map[string]string{"1": "JAN", "09": "SEP", "march": "MAR", "DEC": "DEC"} {
		v, _ := MonthAbbrev(in, true)
		assert.Equal(t, want, v, in)
	}
}

func TestTwoDigit(t *testing.T) {
	v, _ := TwoDigit("4", true)
	assert.Equal(t, "04", v)
	v, _ = TwoDigit("12", true)
	assert.Equal(t, "12", v)
}

func TestDatePartRejectsNonISO(t *testing.T) {
	_, ok := DatePart("day")("07/03/2019", true)
	assert.False(t, ok)
}

func TestColumns(t *testing.T) {
	v, ok := Columns("number", "type")([]any{
		map[string]any{"number": "1", "type": "H"},
		map[string]any{"number": "2"},
	}, true)
	assert.True(t, ok)
	assert.Equal(t, [][]string{{"1", "H"}, {"2", ""}}, v)

	_, ok = Columns("x")([]any{}, true)
	assert.False(t, ok)
}

func TestChainStopsOnSkip(t *testing.T) {
	calls := 0
	count := func(raw any, present bool) (any, bool) { calls++; return raw, present }
	_, ok := Chain(DatePart("day"), count)("bad", true)
	assert.False(t, ok)
	assert.Zero(t, calls)

	v, ok := Chain(DefaultTo("NONE"), count)(nil, false)
	assert.True(t, ok)
	assert.Equal(t, "NONE", v)
	assert.Equal(t, 1, calls)
}
