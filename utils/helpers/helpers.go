package helpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jakehl/goid"
	"github.com/leekchan/accounting"
)

func GetUUId() string {
	v4UUID := goid.NewV4UUID()
	return fmt.Sprint(v4UUID.String())
}

// NewSagaID builds a random saga id such as DEP-1f0c...
func NewSagaID(prefix string) string {
	return prefix + "-" + GetUUId()
}

// GetCurrentTime is the single clock of the orchestrator; stored times are UTC.
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

func IsStringSliceContains(stringSlice []string, searchString string) bool {
	for _, value := range stringSlice {
		if value == searchString {
			return true
		}
	}
	return false
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"VND": "₫",
}

// FormatMoney renders an amount for audit messages, e.g. $1,250.00 or 1,250.00 CHF.
func FormatMoney(amount float64, currency string) string {
	currency = strings.ToUpper(currency)
	if symbol, ok := currencySymbols[currency]; ok {
		precision := 2
		if currency == "JPY" || currency == "VND" {
			precision = 0
		}
		ac := accounting.DefaultAccounting(symbol, precision)
		return ac.FormatMoney(amount)
	}
	ac := accounting.DefaultAccounting("", 2)
	return strings.TrimSpace(ac.FormatMoney(amount) + " " + currency)
}

// Since renders how long ago t was, e.g. "3 minutes ago".
func Since(t time.Time) string {
	return humanize.Time(t)
}
