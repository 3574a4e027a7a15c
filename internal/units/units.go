// Package units converts ingredient quantities between measurement
// units using a fixed conversion table.
package units

// Canonical unit names as stored on ingredients and recipe components
const (
	Gram       = "g"
	Kilogram   = "kg"
	Milliliter = "ml"
	Liter      = "l"
	Unit       = "unit"
)

type unitPair struct {
	from string
	to   string
}

// Only mass and volume within the metric pairs are convertible.
var conversionFactors = map[unitPair]float64{
	{Gram, Kilogram}:    0.001,
	{Kilogram, Gram}:    1000,
	{Milliliter, Liter}: 0.001,
	{Liter, Milliliter}: 1000,
}

// Normalize converts quantity from one unit to another. Equal units
// return the quantity unchanged. If no factor is defined for a differing
// pair (anything outside g<->kg and ml<->l), the quantity is returned
// unconverted rather than raising an error. Callers costing "unit"-count
// ingredients stored under a different unit will therefore get the raw
// quantity back.
func Normalize(quantity float64, fromUnit, toUnit string) float64 {
	if fromUnit == toUnit {
		return quantity
	}
	if factor, ok := conversionFactors[unitPair{fromUnit, toUnit}]; ok {
		return quantity * factor
	}
	return quantity
}

// Convertible reports whether Normalize can actually convert between the
// two units (equal units count as convertible).
func Convertible(fromUnit, toUnit string) bool {
	if fromUnit == toUnit {
		return true
	}
	_, ok := conversionFactors[unitPair{fromUnit, toUnit}]
	return ok
}
