// Package scoring вычисляет приоритет сделок в воронке финансирования.
//
// Все функции пакета чистые: результат полностью определяется аргументами,
// текущее время передаётся явно и внутри пакета часы не читаются.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/akomarov/dealflow-system/internal/model"
)

// Level описывает классификацию срочности сделки.
type Level string

const (
	LevelNormal Level = "normal"
	LevelHigh   Level = "high"
	LevelUrgent Level = "urgent"
)

// Thresholds содержит пороги для одного уровня срочности.
type Thresholds struct {
	DaysThreshold   int
	AmountThreshold float64
	ScoreThreshold  int
}

// Config содержит пороги классификации приоритета.
// Передаётся параметром в точке вызова; пакет не хранит разделяемого состояния.
type Config struct {
	Urgent Thresholds
	High   Thresholds
}

// DefaultConfig возвращает пороги приоритизации по умолчанию.
func DefaultConfig() Config {
	return Config{
		Urgent: Thresholds{
			DaysThreshold:   10,
			AmountThreshold: 150000,
			ScoreThreshold:  80,
		},
		High: Thresholds{
			DaysThreshold:   5,
			AmountThreshold: 75000,
			ScoreThreshold:  60,
		},
	}
}

// PriorityScore содержит результат оценки приоритета сделки.
type PriorityScore struct {
	Level   Level    `json:"level"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// StageMultiplier возвращает весовой коэффициент этапа воронки.
// Неизвестный этап получает коэффициент 1.0 и не считается ошибкой.
func StageMultiplier(stage model.DealStage) float64 {
	switch stage {
	case model.StageNew:
		return 1.0
	case model.StageReviewingDocs:
		return 1.2
	case model.StageUnderwriting:
		return 1.5
	case model.StageOfferSent:
		return 2.0
	case model.StageFunded:
		return 0.5
	case model.StageDeclined:
		return 0.1
	default:
		return 1.0
	}
}

// Score вычисляет приоритет сделки по времени на этапе, запрошенной сумме
// и весу этапа. Нулевая конфигурация заменяется значениями по умолчанию.
//
// Компонент этапа выводится из временного компонента умножением, а не считается
// независимой долей бюджета: сделки, долго висящие на поздних этапах, получают
// максимум веса. Итог ограничивается диапазоном 0..100.
func Score(updatedAt time.Time, amountRequested float64, stage model.DealStage, now time.Time, cfg Config) PriorityScore {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}

	daysInStage := int(now.Sub(updatedAt).Hours() / 24)
	if daysInStage < 0 {
		// Рассинхронизация часов не должна ронять оценку.
		daysInStage = 0
	}

	timeScore := math.Min(40, float64(daysInStage)/float64(cfg.Urgent.DaysThreshold)*40)

	amountScore := math.Min(30, amountRequested/cfg.Urgent.AmountThreshold*30)
	if amountScore < 0 {
		amountScore = 0
	}

	stageScore := math.Min(30, timeScore*StageMultiplier(stage))

	total := int(math.Round(timeScore + amountScore + stageScore))
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	var reasons []string
	if daysInStage >= cfg.High.DaysThreshold {
		reasons = append(reasons, fmt.Sprintf("In stage for %d days", daysInStage))
	}
	if amountRequested >= cfg.Urgent.AmountThreshold {
		reasons = append(reasons, fmt.Sprintf("High-value deal: $%s", formatAmount(amountRequested)))
	} else if amountRequested >= cfg.High.AmountThreshold {
		reasons = append(reasons, fmt.Sprintf("Large deal: $%s", formatAmount(amountRequested)))
	}
	if stage == model.StageOfferSent && daysInStage > 3 {
		reasons = append(reasons, "Offer pending response")
	}
	if stage == model.StageUnderwriting && daysInStage > 2 {
		reasons = append(reasons, "Underwriting review overdue")
	}

	level := LevelNormal
	switch {
	case total >= cfg.Urgent.ScoreThreshold:
		level = LevelUrgent
	case total >= cfg.High.ScoreThreshold:
		level = LevelHigh
	}

	return PriorityScore{
		Level:   level,
		Score:   total,
		Reasons: reasons,
	}
}

// ScoredDeal связывает сделку с вычисленным приоритетом.
type ScoredDeal struct {
	Deal     model.Deal
	Priority PriorityScore
}

// ScoreDeals вычисляет приоритет для каждой сделки списка.
func ScoreDeals(deals []model.Deal, now time.Time, cfg Config) []ScoredDeal {
	res := make([]ScoredDeal, 0, len(deals))
	for _, d := range deals {
		res = append(res, ScoredDeal{
			Deal:     d,
			Priority: Score(d.UpdatedAt, d.AmountRequested, d.Stage, now, cfg),
		})
	}
	return res
}

// SortByPriority упорядочивает сделки по убыванию приоритета.
// При равном счёте первой идёт сделка, которой касались позже; при полном
// совпадении сохраняется исходный относительный порядок.
func SortByPriority(scored []ScoredDeal) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Priority.Score != scored[j].Priority.Score {
			return scored[i].Priority.Score > scored[j].Priority.Score
		}
		return scored[i].Deal.UpdatedAt.After(scored[j].Deal.UpdatedAt)
	})
}

// formatAmount форматирует сумму с разделителями тысяч для текста причин.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", math.Abs(v))
	n := len(s)
	if n <= 3 {
		if v < 0 {
			return "-" + s
		}
		return s
	}

	var out []byte
	for i, ch := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}
	if v < 0 {
		return "-" + string(out)
	}
	return string(out)
}
