// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package userdata

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with its currency symbol, e.g.
// "$ 1,234.56" for USD. Unknown codes fall back to "<amount> <code>".
func FormatAmount(code string, amount float64) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	return amountPrinter.Sprint(currency.Symbol(unit.Amount(amount)))
}
