// Package model содержит доменные сущности CRM-системы dealflow.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// DealStage описывает этап воронки, на котором находится сделка.
type DealStage string

const (
	StageNew           DealStage = "New"
	StageReviewingDocs DealStage = "Reviewing Documents"
	StageUnderwriting  DealStage = "Underwriting"
	StageOfferSent     DealStage = "Offer Sent"
	StageFunded        DealStage = "Funded"
	StageDeclined      DealStage = "Declined"
	StageApproved      DealStage = "Approved"
	StageMoreInfo      DealStage = "More Info Needed"
)

// KnownStage сообщает, входит ли этап в закрытый набор этапов воронки.
func KnownStage(s DealStage) bool {
	switch s {
	case StageNew, StageReviewingDocs, StageUnderwriting, StageOfferSent,
		StageFunded, StageDeclined, StageApproved, StageMoreInfo:
		return true
	default:
		return false
	}
}

// Company представляет компанию-мерчанта, для которой заводятся сделки.
type Company struct {
	ID              uuid.UUID
	Name            string
	Industry        string
	YearsInBusiness *float64
	RoutingNumber   string
	CreatedAt       time.Time
}

// Contact описывает контактное лицо компании.
type Contact struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Deal описывает сделку в воронке финансирования.
// UpdatedAt фиксирует момент последнего перехода между этапами.
type Deal struct {
	ID                  uuid.UUID
	CompanyID           uuid.UUID
	Name                string
	AmountRequested     float64
	Stage               DealStage
	CreditScore         *int
	MonthlyRevenue      *float64
	AverageDailyBalance *float64
	ScorecardStatus     ScorecardStatus
	ScorecardScore      *float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ScorecardStatus описывает состояние получения скоркарты из внешней системы.
type ScorecardStatus string

const (
	ScorecardStatusNone       ScorecardStatus = "NONE"
	ScorecardStatusRequested  ScorecardStatus = "REQUESTED"
	ScorecardStatusProcessing ScorecardStatus = "PROCESSING"
	ScorecardStatusReady      ScorecardStatus = "READY"
	ScorecardStatusFailed     ScorecardStatus = "FAILED"
)

// PaymentFrequency описывает периодичность списаний по офферу.
type PaymentFrequency string

const (
	FrequencyDaily  PaymentFrequency = "daily"
	FrequencyWeekly PaymentFrequency = "weekly"
)

// Offer описывает сформированное предложение по сделке.
// Расчётные поля заполняются калькулятором платежей при создании.
type Offer struct {
	ID            uuid.UUID
	DealID        uuid.UUID
	Amount        float64
	FactorRate    float64
	BuyRate       *float64
	TermMonths    int
	Frequency     PaymentFrequency
	TotalPayback  float64
	DailyPayment  float64
	WeeklyPayment float64
	Commission    float64
	CreatedAt     time.Time
}

// Document описывает элемент андеррайтингового чек-листа по сделке.
type Document struct {
	ID        uuid.UUID
	DealID    uuid.UUID
	Name      string
	Type      string
	Uploaded  bool
	CreatedAt time.Time
}

// DecisionStatus описывает решение андеррайтера по сделке.
type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "APPROVED"
	DecisionDeclined DecisionStatus = "DECLINED"
	DecisionMoreInfo DecisionStatus = "MORE_INFO"
)

// UnderwritingDecision фиксирует явное решение андеррайтера.
// Решение всегда принимает человек: оценка риска носит рекомендательный характер.
type UnderwritingDecision struct {
	ID            uuid.UUID
	DealID        uuid.UUID
	Status        DecisionStatus
	DeclineReason string
	Notes         string
	DecidedBy     int64
	DecidedAt     time.Time
}
