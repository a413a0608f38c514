// Package risk содержит эвристику оценки риска сделки для андеррайтинга.
//
// Оценка носит рекомендательный характер и никогда не заменяет явное решение
// андеррайтера: она лишь подсвечивает проблемные стороны заявки.
package risk

import (
	"math"

	"github.com/akomarov/dealflow-system/internal/model"
)

// Rating описывает категориальную оценку одного фактора риска.
type Rating string

const (
	RatingLow    Rating = "low"
	RatingMedium Rating = "medium"
	RatingHigh   Rating = "high"
)

// Числовые веса категорий и долевые коэффициенты факторов в сводном счёте.
// Доля documentsWeight зарезервирована в знаменателе, но соответствующего
// фактора у эвристики нет, поэтому сводный счёт не достигает номинального
// максимума. Поведение сохранено намеренно, см. DESIGN.md.
const (
	ratingValueLow    = 20
	ratingValueMedium = 50
	ratingValueHigh   = 80

	creditWeight      = 30
	cashFlowWeight    = 25
	businessAgeWeight = 20
	balanceWeight     = 15
	documentsWeight   = 10
)

// Assessment содержит четыре категориальные оценки и сводный счёт риска.
type Assessment struct {
	CreditRisk       Rating `json:"credit_risk"`
	CashFlowRisk     Rating `json:"cash_flow_risk"`
	BusinessAgeRisk  Rating `json:"business_age_risk"`
	DailyBalanceRisk Rating `json:"daily_balance_risk"`
	OverallRisk      Rating `json:"overall_risk"`
	RiskScore        int    `json:"risk_score"`
}

// Assess оценивает риск сделки по кредитному рейтингу, денежному потоку,
// возрасту бизнеса и среднедневному остатку. Отсутствующий показатель
// оценивается как medium.
func Assess(deal *model.Deal, yearsInBusiness *float64) Assessment {
	a := Assessment{
		CreditRisk:       creditRisk(deal.CreditScore),
		CashFlowRisk:     cashFlowRisk(deal.AmountRequested, deal.MonthlyRevenue),
		BusinessAgeRisk:  businessAgeRisk(yearsInBusiness),
		DailyBalanceRisk: dailyBalanceRisk(deal.AverageDailyBalance, deal.AmountRequested),
	}

	weighted := creditWeight*ratingValue(a.CreditRisk) +
		cashFlowWeight*ratingValue(a.CashFlowRisk) +
		businessAgeWeight*ratingValue(a.BusinessAgeRisk) +
		balanceWeight*ratingValue(a.DailyBalanceRisk)

	a.RiskScore = int(math.Round(float64(weighted) / 100))

	switch {
	case a.RiskScore <= 35:
		a.OverallRisk = RatingLow
	case a.RiskScore <= 65:
		a.OverallRisk = RatingMedium
	default:
		a.OverallRisk = RatingHigh
	}

	return a
}

func creditRisk(creditScore *int) Rating {
	if creditScore == nil {
		return RatingMedium
	}
	switch {
	case *creditScore >= 750:
		return RatingLow
	case *creditScore >= 650:
		return RatingMedium
	default:
		return RatingHigh
	}
}

func cashFlowRisk(amountRequested float64, monthlyRevenue *float64) Rating {
	if monthlyRevenue == nil || *monthlyRevenue <= 0 {
		return RatingMedium
	}
	ratio := amountRequested / *monthlyRevenue
	switch {
	case ratio <= 1:
		return RatingLow
	case ratio <= 2:
		return RatingMedium
	default:
		return RatingHigh
	}
}

func businessAgeRisk(yearsInBusiness *float64) Rating {
	if yearsInBusiness == nil {
		return RatingMedium
	}
	switch {
	case *yearsInBusiness >= 3:
		return RatingLow
	case *yearsInBusiness >= 1:
		return RatingMedium
	default:
		return RatingHigh
	}
}

func dailyBalanceRisk(averageDailyBalance *float64, amountRequested float64) Rating {
	if averageDailyBalance == nil || amountRequested <= 0 {
		return RatingMedium
	}
	ratio := *averageDailyBalance / amountRequested
	switch {
	case ratio >= 0.3:
		return RatingLow
	case ratio >= 0.15:
		return RatingMedium
	default:
		return RatingHigh
	}
}

func ratingValue(r Rating) int {
	switch r {
	case RatingLow:
		return ratingValueLow
	case RatingHigh:
		return ratingValueHigh
	default:
		return ratingValueMedium
	}
}
