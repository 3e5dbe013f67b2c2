package billing

import "fmt"

// Cents is a money amount in integer cents. All financial arithmetic in the
// engine happens on this type; floats never touch stored amounts.
type Cents int64

// ApplyRate returns amount * ratePercent / 100 truncated toward zero. The
// rate is converted to whole basis points first so the result depends only on
// integer arithmetic, which keeps commission figures replayable. Truncation
// never rounds up, so a computed commission can never overpay.
func ApplyRate(amount Cents, ratePercent float64) Cents {
	bp := int64(ratePercent*100 + 0.5)
	return amount * Cents(bp) / 10000
}

// Format renders cents as a dollar string for statements and logs.
func Format(amount Cents) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
