package budget

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"$12.345.678":                   12345678,
		"Presupuesto ajustado: 1.500,5": 1500.5,
		"sin monto":                     0,
		"":                              0,
		"42":                            42,
		"total 3.000.000 CLP (IVA 19%)": 3000000,
		"12,345,678":                    12345678,
		"USD 12,345,678.5":              12345678.5,
		"Total: 2.500.000.":             2500000,
		"son 1.250,":                    1250,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseAmount(input), input)
	}
}

func TestToNumber(t *testing.T) {
	n, ok := toNumber(json.Number("12.5"))
	assert.True(t, ok)
	assert.Equal(t, 12.5, n)

	n, ok = toNumber("1.200")
	assert.True(t, ok)
	assert.Equal(t, 1200.0, n)

	_, ok = toNumber(map[string]any{})
	assert.False(t, ok)

	_, ok = toNumber(nil)
	assert.False(t, ok)
}
