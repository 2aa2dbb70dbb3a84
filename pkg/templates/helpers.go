package templates

import (
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
)

// funcMap is available to every template
var funcMap = template.FuncMap{
	"signed":  Signed,
	"number":  Number,
	"percent": Percent,
	"pad":     Pad,
	"repeat":  strings.Repeat,
}

// Number formats v with thousands separators and at most one decimal
func Number(v float64) string {
	return strings.TrimSuffix(humanize.FormatFloat("#,###.#", v), ".0")
}

// Signed is Number with an explicit plus sign for positive values
func Signed(v float64) string {
	if v > 0 {
		return "+" + Number(v)
	}
	return Number(v)
}

// Percent formats a fraction as a whole percentage
func Percent(v float64) string {
	return humanize.FormatFloat("#,###.", v*100) + "%"
}

// Pad right-pads s with spaces to width runes
func Pad(width int, s string) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
