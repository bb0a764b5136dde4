package supply

import "github.com/shopspring/decimal"

// IssuedFrom returns circulating + destroyed. Indivisible assets are
// truncated to an integer; divisible ones keep the precision of the
// inputs. Unparsable input returns circulating unchanged.
func IssuedFrom(circulating, destroyed string, divisible bool) string {
	c, err := decimal.NewFromString(circulating)
	if err != nil {
		return circulating
	}
	d, err := decimal.NewFromString(destroyed)
	if err != nil {
		return circulating
	}
	return format(c.Add(d), divisible, c, d)
}

// CirculatingFrom returns issued - destroyed, floored at zero, with the
// same formatting rules as IssuedFrom.
func CirculatingFrom(issued, destroyed string, divisible bool) string {
	i, err := decimal.NewFromString(issued)
	if err != nil {
		return issued
	}
	d, err := decimal.NewFromString(destroyed)
	if err != nil {
		return issued
	}
	c := i.Sub(d)
	if c.IsNegative() {
		c = decimal.Zero
	}
	return format(c, divisible, i, d)
}

func format(v decimal.Decimal, divisible bool, operands ...decimal.Decimal) string {
	if !divisible {
		return v.Truncate(0).String()
	}
	var places int32
	for _, o := range operands {
		if p := -o.Exponent(); p > places {
			places = p
		}
	}
	return v.StringFixed(places)
}
