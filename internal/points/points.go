// Package points реализует расчёт баллов за сданное вторсырьё.
package points

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ecopay/ecopay-system/internal/model"
)

// ErrNonPositiveWeight возвращается при нулевом или отрицательном весе.
var ErrNonPositiveWeight = errors.New("weight must be positive")

// ErrUnknownCategory возвращается для категории, отсутствующей в таблице
// тарифов. Это ошибка конфигурации: валидация обязана отсечь её раньше.
var ErrUnknownCategory = errors.New("unknown waste category")

// RateTable задаёт тариф начисления баллов за килограмм по категориям.
type RateTable map[model.WasteCategory]int64

// DefaultRates — тариф по умолчанию, баллов за килограмм.
func DefaultRates() RateTable {
	return RateTable{
		model.WastePlastic: 30,
		model.WastePaper:   25,
		model.WasteGlass:   30,
		model.WasteIron:    45,
	}
}

// ParseRates разбирает таблицу тарифов из строки конфигурации вида
// "Plastic:30,Paper:25,Glass:30,Iron:45".
func ParseRates(s string) (RateTable, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultRates(), nil
	}

	rates := RateTable{}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed rate entry %q", pair)
		}

		category := model.WasteCategory(strings.TrimSpace(parts[0]))
		if !model.IsValidWasteCategory(category) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, parts[0])
		}

		rate, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be a positive integer", category)
		}

		rates[category] = rate
	}

	for _, c := range model.WasteCategories {
		if _, ok := rates[c]; !ok {
			return nil, fmt.Errorf("%w: no rate for %s", ErrUnknownCategory, c)
		}
	}

	return rates, nil
}

// Calculator считает баллы за вес по таблице тарифов. Чистая функция без
// состояния: одинаковые входы всегда дают одинаковый результат, что
// позволяет сверять начисления по журналу.
type Calculator struct {
	rates RateTable
}

// NewCalculator создаёт калькулятор с указанной таблицей тарифов.
func NewCalculator(rates RateTable) *Calculator {
	return &Calculator{rates: rates}
}

// Calculate возвращает количество баллов за weightGrams граммов вторсырья
// категории category. Округление — арифметическое (половина вверх).
func (c *Calculator) Calculate(category model.WasteCategory, weightGrams int64) (int64, error) {
	if weightGrams <= 0 {
		return 0, ErrNonPositiveWeight
	}

	rate, ok := c.rates[category]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	kg := decimal.NewFromInt(weightGrams).Div(decimal.NewFromInt(1000))
	// Round у decimal округляет половину от нуля, для положительных
	// значений это и есть округление половины вверх.
	return kg.Mul(decimal.NewFromInt(rate)).Round(0).IntPart(), nil
}

// KilogramsToGrams переводит вес из килограммов во внутреннее целочисленное
// представление в граммах.
func KilogramsToGrams(kg float64) int64 {
	return decimal.NewFromFloat(kg).Mul(decimal.NewFromInt(1000)).Round(0).IntPart()
}

// GramsToKilograms переводит граммы обратно в килограммы для выдачи наружу.
func GramsToKilograms(grams int64) float64 {
	f, _ := decimal.NewFromInt(grams).Div(decimal.NewFromInt(1000)).Float64()
	return f
}
