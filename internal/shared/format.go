package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brlPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders a decimal amount as a pt-BR currency string, e.g.
// "R$ 1.234,56". Used for display fields on charge and statement responses.
func FormatBRL(amount decimal.Decimal) string {
	return brlPrinter.Sprintf("R$ %.2f", amount.InexactFloat64())
}
