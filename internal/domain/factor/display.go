package factor

import (
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"gitarg/internal/domain/scenario"
)

// roundTenth renders v rounded to one decimal place, dropping a trailing ".0"
func roundTenth(v float64) string {
	return decimal.NewFromFloat(v).Round(1).String()
}

// commaTenth is roundTenth with thousands separators
func commaTenth(v float64) string {
	return humanize.CommafWithDigits(decimal.NewFromFloat(v).Round(1).InexactFloat64(), 1)
}

func signedPercent(v float64) string {
	pct := decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0)
	if pct.Sign() >= 0 {
		return "+" + pct.String() + "%"
	}
	return pct.String() + "%"
}

func estimateText(e scenario.Estimate) string {
	return roundTenth(e.Pessimistic*100) + "% / " +
		roundTenth(e.MostLikely*100) + "% / " +
		roundTenth(e.Optimistic*100) + "%"
}

// camelToSpace turns "noMarketNoMovement" into "No market no movement"
func camelToSpace(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
