package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mmynk/hearth/internal/period"
)

// Formatter renders amounts and dates for people.
type Formatter struct {
	symbol  string
	printer *message.Printer
}

// NewFormatter creates a formatter for a BCP 47 locale such as "pt-BR" and a
// currency symbol such as "R$".
func NewFormatter(locale, symbol string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &Formatter{symbol: symbol, printer: message.NewPrinter(tag)}, nil
}

// Currency formats an amount with the locale's grouping and decimal marks,
// e.g. "R$ 1.234,56".
func (f *Formatter) Currency(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + f.symbol + " " + f.printer.Sprintf("%.2f", d.InexactFloat64())
}

// Date formats a civil date as YYYY-MM-DD, or "-" when unset.
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return period.FormatDate(t)
}

// DateTime formats an instant as DD/MM/YYYY HH:MM in UTC.
func (f *Formatter) DateTime(t time.Time) string {
	return t.UTC().Format("02/01/2006 15:04")
}

// Month formats a YYYY-MM key as MM/YYYY. Malformed keys are returned as is.
func (f *Formatter) Month(key string) string {
	t, err := period.ParseMonthKey(key)
	if err != nil {
		return key
	}
	return t.Format("01/2006")
}

// Slug turns a label into a lowercase ASCII file-name fragment.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "all"
	}
	return out
}
