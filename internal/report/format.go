package report

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"
)

// TimeLayout is used for every timestamp the reports print.
const TimeLayout = "2006-01-02 15:04"

const missing = "-"

// FormatOption prints an undefined or non-finite indicator as "-".
func FormatOption(o optional.Option[float64], decimals int) string {
	if o.IsNone() {
		return missing
	}
	return FormatFloat(o.Unwrap(), decimals)
}

// FormatFloat prints v with the given decimals, or "-" when v is NaN or infinite.
func FormatFloat(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

// FormatPct prints a signed percentage.
func FormatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return fmt.Sprintf("%+.2f %%", v)
}
