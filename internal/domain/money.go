package domain

import "github.com/shopspring/decimal"

// moneyScale - число знаков после запятой, как у NUMERIC(10,2).
const moneyScale = 2

// MaxMoney - наибольшая сумма, которую вмещает NUMERIC(10,2).
var MaxMoney = decimal.RequireFromString("99999999.99")

// RoundMoney округляет сумму до копеек (half-up).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyScale)
}

// checkMoney отклоняет отрицательные суммы и суммы больше MaxMoney.
func checkMoney(v *ValidationError, field string, d decimal.Decimal) {
	switch {
	case d.IsNegative():
		v.Add(field, "must be non-negative")
	case d.GreaterThan(MaxMoney):
		v.Add(field, "must be at most "+MaxMoney.StringFixed(moneyScale))
	}
}
