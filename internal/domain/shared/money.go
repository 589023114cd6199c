package shared

import (
	"fmt"
	"strings"
)

// FormatNaira renders an amount held in minor units (kobo) as a naira string
// with thousands separators, e.g. 12345600 -> "₦123,456". Kobo remainders are
// shown only when non-zero.
func FormatNaira(minorUnits int64) string {
	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	naira := minorUnits / 100
	kobo := minorUnits % 100

	digits := fmt.Sprintf("%d", naira)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if kobo != 0 {
		return fmt.Sprintf("%s₦%s.%02d", sign, b.String(), kobo)
	}
	return fmt.Sprintf("%s₦%s", sign, b.String())
}
