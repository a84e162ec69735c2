package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatNumber renders d with Indonesian grouping, at most two decimals.
// Digits come from the decimal string so large totals keep every cent.
func FormatNumber(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	frac = strings.TrimRight(frac, "0")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		b.WriteString(idPrinter.Sprint(number.Decimal(n)))
	} else {
		b.WriteString(groupThousands(whole))
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

func groupThousands(digits string) string {
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatRupiah renders d as "Rp 1.500".
func FormatRupiah(d decimal.Decimal) string {
	return "Rp " + FormatNumber(d)
}
