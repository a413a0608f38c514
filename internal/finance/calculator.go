// Package finance содержит калькулятор платежей по фактор-ставке
// и расчёт комиссии ISO-брокера.
package finance

import (
	"errors"
	"fmt"
	"math"

	"github.com/akomarov/dealflow-system/internal/model"
)

// Конвенции расчёта: рабочий месяц — 22 платёжных дня, неделя — 5 платёжных
// дней, в месяце 4.33 недели.
const (
	businessDaysPerMonth = 22
	paymentDaysPerWeek   = 5
	weeksPerMonth        = 4.33
)

// ErrInvalidInput возвращается при некорректных входных данных калькулятора.
var ErrInvalidInput = errors.New("invalid calculator input")

// PaymentSchedule содержит результат расчёта графика платежей.
// Суммы не округляются до денежных единиц: округление — задача слоя отображения.
type PaymentSchedule struct {
	TotalPayback  float64 `json:"total_payback"`
	DailyPayment  float64 `json:"daily_payment"`
	WeeklyPayment float64 `json:"weekly_payment"`
}

// CalculatePayments рассчитывает общую сумму возврата и периодические платежи.
//
// При дневной периодичности недельный платёж выводится из дневного, при
// недельной — наоборот: производное значение служит только для отображения.
func CalculatePayments(amount, factorRate float64, termMonths int, frequency model.PaymentFrequency) (PaymentSchedule, error) {
	if !isFinite(amount) || amount <= 0 {
		return PaymentSchedule{}, fmt.Errorf("%w: amount must be a positive finite number, got %v", ErrInvalidInput, amount)
	}
	if !isFinite(factorRate) || factorRate < 1 {
		return PaymentSchedule{}, fmt.Errorf("%w: factor rate must be a finite number >= 1, got %v", ErrInvalidInput, factorRate)
	}
	if termMonths <= 0 {
		return PaymentSchedule{}, fmt.Errorf("%w: term must be a positive number of months, got %d", ErrInvalidInput, termMonths)
	}

	totalPayback := amount * factorRate

	switch frequency {
	case model.FrequencyDaily:
		totalDays := float64(termMonths * businessDaysPerMonth)
		daily := totalPayback / totalDays
		return PaymentSchedule{
			TotalPayback:  totalPayback,
			DailyPayment:  daily,
			WeeklyPayment: daily * paymentDaysPerWeek,
		}, nil
	case model.FrequencyWeekly:
		totalWeeks := math.Ceil(float64(termMonths) * weeksPerMonth)
		weekly := totalPayback / totalWeeks
		return PaymentSchedule{
			TotalPayback:  totalPayback,
			DailyPayment:  weekly / paymentDaysPerWeek,
			WeeklyPayment: weekly,
		}, nil
	default:
		return PaymentSchedule{}, fmt.Errorf("%w: unknown payment frequency %q", ErrInvalidInput, frequency)
	}
}

// ISOCommission рассчитывает комиссию брокера как спред между фактор-ставкой
// и бай-рейтом. Нулевая ставка трактуется как отсутствующая, результат — 0.
// Корректность соотношения ставок не проверяется: при buyRate > factorRate
// комиссия отрицательная, и это ответственность вызывающей стороны.
func ISOCommission(amount, buyRate, factorRate float64) float64 {
	if buyRate == 0 || factorRate == 0 {
		return 0
	}
	return amount * (factorRate - buyRate)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
