package shared

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	moneyMu      sync.RWMutex
	moneyPrinter = message.NewPrinter(language.LatinAmericanSpanish)
)

// SetLocale switches the printer used by FormatMoney. Unknown tags fall back to
// Latin American Spanish.
func SetLocale(tag string) {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.LatinAmericanSpanish
	}
	moneyMu.Lock()
	moneyPrinter = message.NewPrinter(lang)
	moneyMu.Unlock()
}

// FormatMoney renders an amount with two decimals and locale grouping.
func FormatMoney(amount float64) string {
	moneyMu.RLock()
	defer moneyMu.RUnlock()
	return moneyPrinter.Sprintf("$%.2f", amount)
}
