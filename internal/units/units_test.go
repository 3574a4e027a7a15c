package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		from     string
		to       string
		want     float64
	}{
		{name: "same unit unchanged", quantity: 2.5, from: Kilogram, to: Kilogram, want: 2.5},
		{name: "grams to kilograms", quantity: 500, from: Gram, to: Kilogram, want: 0.5},
		{name: "kilograms to grams", quantity: 1.2, from: Kilogram, to: Gram, want: 1200},
		{name: "milliliters to liters", quantity: 750, from: Milliliter, to: Liter, want: 0.75},
		{name: "liters to milliliters", quantity: 0.33, from: Liter, to: Milliliter, want: 330},
		{name: "undefined pair passes through", quantity: 3, from: Unit, to: Kilogram, want: 3},
		{name: "mass to volume passes through", quantity: 100, from: Gram, to: Liter, want: 100},
		{name: "zero quantity", quantity: 0, from: Gram, to: Kilogram, want: 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := Normalize(testCase.quantity, testCase.from, testCase.to)
			assert.InDelta(t, testCase.want, got, 1e-9)
		})
	}
}

func TestConvertible(t *testing.T) {
	assert.True(t, Convertible(Gram, Kilogram))
	assert.True(t, Convertible(Liter, Milliliter))
	assert.True(t, Convertible(Unit, Unit))
	assert.False(t, Convertible(Unit, Kilogram))
	assert.False(t, Convertible(Gram, Liter))
}
