// Package service реализует бизнес-логику CRM-системы dealflow.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/akomarov/dealflow-system/internal/finance"
	"github.com/akomarov/dealflow-system/internal/model"
	"github.com/akomarov/dealflow-system/internal/repository"
	"github.com/akomarov/dealflow-system/internal/risk"
	"github.com/akomarov/dealflow-system/internal/scorecard"
	"github.com/akomarov/dealflow-system/internal/scoring"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownStage возвращается при попытке перевести сделку на неизвестный этап.
	ErrUnknownStage = errors.New("unknown deal stage")
	// ErrInvalidDecision возвращается при некорректных параметрах решения андеррайтера.
	ErrInvalidDecision = errors.New("invalid underwriting decision")
	// ErrUnknownScorecardStatus возвращается при неизвестном статусе скоркарты из webhook.
	ErrUnknownScorecardStatus = errors.New("unknown scorecard status")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateCompany(ctx context.Context, company model.Company) (*model.Company, error)
	GetCompanies(ctx context.Context) ([]model.Company, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
	CreateContact(ctx context.Context, contact model.Contact) (*model.Contact, error)
	GetContactsByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Contact, error)
	CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error)
	GetDeals(ctx context.Context) ([]model.Deal, error)
	GetDealByID(ctx context.Context, id uuid.UUID) (*model.Deal, error)
	UpdateDealStage(ctx context.Context, id uuid.UUID, stage model.DealStage) (*model.Deal, error)
	CreateOffer(ctx context.Context, offer model.Offer) (*model.Offer, error)
	GetOffersByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Offer, error)
	CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	GetDocumentsByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Document, error)
	UpdateDocumentUploaded(ctx context.Context, dealID, docID uuid.UUID, uploaded bool) error
	CreateDecision(ctx context.Context, decision model.UnderwritingDecision) (*model.UnderwritingDecision, error)
	GetDecisionByDeal(ctx context.Context, dealID uuid.UUID) (*model.UnderwritingDecision, error)
	CountDealsByStage(ctx context.Context) ([]repository.StageCount, error)
	SumFundedAmount(ctx context.Context) (int64, error)
	GetDealsForScorecard(ctx context.Context, limit int) ([]repository.DealForScorecard, error)
	UpdateDealScorecard(ctx context.Context, id uuid.UUID, status model.ScorecardStatus, score *float64) error
}

// Service содержит бизнес-логику CRM-системы dealflow.
type Service struct {
	repo            Repository
	scorecardClient *scorecard.Client
	priorityCfg     scoring.Config
	now             func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом системы скоринга.
func NewService(repo Repository, scorecardClient *scorecard.Client) *Service {
	return &Service{
		repo:            repo,
		scorecardClient: scorecardClient,
		priorityCfg:     scoring.DefaultConfig(),
		now:             time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if subtle.ConstantTimeCompare(hashed, u.PasswordHash) != 1 {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// CreateCompany создаёт компанию-мерчанта.
func (s *Service) CreateCompany(ctx context.Context, company model.Company) (*model.Company, error) {
	return s.repo.CreateCompany(ctx, company)
}

// GetCompanies возвращает список компаний.
func (s *Service) GetCompanies(ctx context.Context) ([]model.Company, error) {
	return s.repo.GetCompanies(ctx)
}

// GetCompanyByID возвращает компанию по идентификатору.
func (s *Service) GetCompanyByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	return s.repo.GetCompanyByID(ctx, id)
}

// CreateContact добавляет контактное лицо компании.
func (s *Service) CreateContact(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	return s.repo.CreateContact(ctx, contact)
}

// GetContactsByCompany возвращает контакты компании.
func (s *Service) GetContactsByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Contact, error) {
	return s.repo.GetContactsByCompany(ctx, companyID)
}

// CreateDeal заводит новую сделку. Пустой этап трактуется как начало воронки.
// При настроенной системе скоринга для сделки сразу запрашивается скоркарта.
func (s *Service) CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	if deal.Stage == "" {
		deal.Stage = model.StageNew
	}
	if !model.KnownStage(deal.Stage) {
		return nil, ErrUnknownStage
	}

	deal.ScorecardStatus = model.ScorecardStatusNone
	if s.scorecardClient != nil {
		deal.ScorecardStatus = model.ScorecardStatusRequested
	}

	return s.repo.CreateDeal(ctx, deal)
}

// GetDeals возвращает все сделки.
func (s *Service) GetDeals(ctx context.Context) ([]model.Deal, error) {
	return s.repo.GetDeals(ctx)
}

// GetDealByID возвращает сделку по идентификатору.
func (s *Service) GetDealByID(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	return s.repo.GetDealByID(ctx, id)
}

// UpdateDealStage переводит сделку на указанный этап воронки.
func (s *Service) UpdateDealStage(ctx context.Context, id uuid.UUID, stage model.DealStage) (*model.Deal, error) {
	if !model.KnownStage(stage) {
		return nil, ErrUnknownStage
	}
	return s.repo.UpdateDealStage(ctx, id, stage)
}

// PipelineColumn описывает колонку канбан-доски: этап, счётчики срочности
// и карточки сделок, упорядоченные по приоритету.
type PipelineColumn struct {
	Stage       model.DealStage
	UrgentCount int
	HighCount   int
	Deals       []scoring.ScoredDeal
}

// pipelineStages задаёт порядок колонок канбан-доски.
var pipelineStages = []model.DealStage{
	model.StageNew,
	model.StageReviewingDocs,
	model.StageUnderwriting,
	model.StageOfferSent,
	model.StageApproved,
	model.StageMoreInfo,
	model.StageFunded,
	model.StageDeclined,
}

// GetPipeline собирает канбан-доску: сделки раскладываются по этапам,
// сортируются по приоритету, для каждой колонки считаются urgent/high.
func (s *Service) GetPipeline(ctx context.Context) ([]PipelineColumn, error) {
	deals, err := s.repo.GetDeals(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	byStage := make(map[model.DealStage][]model.Deal)
	for _, d := range deals {
		byStage[d.Stage] = append(byStage[d.Stage], d)
	}

	columns := make([]PipelineColumn, 0, len(pipelineStages))
	for _, stage := range pipelineStages {
		scored := scoring.ScoreDeals(byStage[stage], now, s.priorityCfg)
		scoring.SortByPriority(scored)

		col := PipelineColumn{Stage: stage, Deals: scored}
		for _, sd := range scored {
			switch sd.Priority.Level {
			case scoring.LevelUrgent:
				col.UrgentCount++
			case scoring.LevelHigh:
				col.HighCount++
			}
		}

		columns = append(columns, col)
	}

	return columns, nil
}

// OfferQuote содержит расчёт по офферу без сохранения.
type OfferQuote struct {
	Schedule   finance.PaymentSchedule
	Commission float64
}

// PreviewOffer рассчитывает график платежей и комиссию без сохранения оффера.
// Используется формой оффера при редактировании полей.
func (s *Service) PreviewOffer(amount, factorRate float64, buyRate *float64, termMonths int, frequency model.PaymentFrequency) (*OfferQuote, error) {
	schedule, err := finance.CalculatePayments(amount, factorRate, termMonths, frequency)
	if err != nil {
		return nil, err
	}

	var commission float64
	if buyRate != nil {
		commission = finance.ISOCommission(amount, *buyRate, factorRate)
	}

	return &OfferQuote{
		Schedule:   schedule,
		Commission: commission,
	}, nil
}

// CreateOffer рассчитывает и сохраняет оффер по сделке.
func (s *Service) CreateOffer(ctx context.Context, dealID uuid.UUID, amount, factorRate float64, buyRate *float64, termMonths int, frequency model.PaymentFrequency) (*model.Offer, error) {
	quote, err := s.PreviewOffer(amount, factorRate, buyRate, termMonths, frequency)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateOffer(ctx, model.Offer{
		DealID:        dealID,
		Amount:        amount,
		FactorRate:    factorRate,
		BuyRate:       buyRate,
		TermMonths:    termMonths,
		Frequency:     frequency,
		TotalPayback:  quote.Schedule.TotalPayback,
		DailyPayment:  quote.Schedule.DailyPayment,
		WeeklyPayment: quote.Schedule.WeeklyPayment,
		Commission:    quote.Commission,
	})
}

// GetOffersByDeal возвращает офферы по сделке.
func (s *Service) GetOffersByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Offer, error) {
	return s.repo.GetOffersByDeal(ctx, dealID)
}

// AssessDealRisk строит оценку риска сделки. Возраст бизнеса берётся из
// карточки компании. Результат рекомендательный и нигде не сохраняется.
func (s *Service) AssessDealRisk(ctx context.Context, dealID uuid.UUID) (*risk.Assessment, error) {
	deal, err := s.repo.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	var yearsInBusiness *float64
	company, err := s.repo.GetCompanyByID(ctx, deal.CompanyID)
	if err == nil {
		yearsInBusiness = company.YearsInBusiness
	} else if !errors.Is(err, repository.ErrCompanyNotFound) {
		return nil, err
	}

	a := risk.Assess(deal, yearsInBusiness)
	return &a, nil
}

// RecordDecision фиксирует решение андеррайтера и переводит сделку на
// соответствующий этап. Для отказа обязательна причина.
func (s *Service) RecordDecision(ctx context.Context, dealID uuid.UUID, userID int64, status model.DecisionStatus, declineReason, notes string) (*model.UnderwritingDecision, error) {
	var stage model.DealStage
	switch status {
	case model.DecisionApproved:
		stage = model.StageApproved
	case model.DecisionDeclined:
		if declineReason == "" {
			return nil, ErrInvalidDecision
		}
		stage = model.StageDeclined
	case model.DecisionMoreInfo:
		stage = model.StageMoreInfo
	default:
		return nil, ErrInvalidDecision
	}

	decision, err := s.repo.CreateDecision(ctx, model.UnderwritingDecision{
		DealID:        dealID,
		Status:        status,
		DeclineReason: declineReason,
		Notes:         notes,
		DecidedBy:     userID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateDealStage(ctx, dealID, stage); err != nil {
		return nil, err
	}

	return decision, nil
}

// GetDecisionByDeal возвращает решение андеррайтера по сделке.
func (s *Service) GetDecisionByDeal(ctx context.Context, dealID uuid.UUID) (*model.UnderwritingDecision, error) {
	return s.repo.GetDecisionByDeal(ctx, dealID)
}

// AddDocument добавляет документ в чек-лист сделки.
func (s *Service) AddDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	return s.repo.CreateDocument(ctx, doc)
}

// GetDocumentsByDeal возвращает чек-лист документов сделки.
func (s *Service) GetDocumentsByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Document, error) {
	return s.repo.GetDocumentsByDeal(ctx, dealID)
}

// SetDocumentUploaded отмечает документ чек-листа как загруженный или нет.
func (s *Service) SetDocumentUploaded(ctx context.Context, dealID, docID uuid.UUID, uploaded bool) error {
	return s.repo.UpdateDocumentUploaded(ctx, dealID, docID, uploaded)
}

// AnalyticsSummary содержит сводку по воронке для дашборда.
type AnalyticsSummary struct {
	TotalDeals   int
	StageCounts  []repository.StageCount
	FundedVolume float64
	UrgentDeals  int
	HighDeals    int
}

// GetAnalyticsSummary собирает сводку: распределение по этапам, объём
// финансирования и количество срочных сделок.
func (s *Service) GetAnalyticsSummary(ctx context.Context) (*AnalyticsSummary, error) {
	counts, err := s.repo.CountDealsByStage(ctx)
	if err != nil {
		return nil, err
	}

	fundedCents, err := s.repo.SumFundedAmount(ctx)
	if err != nil {
		return nil, err
	}

	deals, err := s.repo.GetDeals(ctx)
	if err != nil {
		return nil, err
	}

	summary := &AnalyticsSummary{
		StageCounts:  counts,
		FundedVolume: float64(fundedCents) / 100,
	}

	now := s.now()
	for _, d := range deals {
		summary.TotalDeals++
		switch scoring.Score(d.UpdatedAt, d.AmountRequested, d.Stage, now, s.priorityCfg).Level {
		case scoring.LevelUrgent:
			summary.UrgentDeals++
		case scoring.LevelHigh:
			summary.HighDeals++
		}
	}

	return summary, nil
}

// ApplyScorecardUpdate применяет статус скоркарты, пришедший из webhook
// внешней системы автоматизации.
func (s *Service) ApplyScorecardUpdate(ctx context.Context, dealID uuid.UUID, status string, score *float64) error {
	mapped, ok := mapScorecardStatus(status)
	if !ok {
		return ErrUnknownScorecardStatus
	}
	return s.repo.UpdateDealScorecard(ctx, dealID, mapped, score)
}

func mapScorecardStatus(status string) (model.ScorecardStatus, bool) {
	switch status {
	case scorecard.StatusProcessing:
		return model.ScorecardStatusProcessing, true
	case scorecard.StatusReady:
		return model.ScorecardStatusReady, true
	case scorecard.StatusFailed:
		return model.ScorecardStatusFailed, true
	default:
		return "", false
	}
}

// StartScorecardUpdates запускает фоновый процесс получения скоркарт из внешней системы.
func (s *Service) StartScorecardUpdates(ctx context.Context) {
	if s.scorecardClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processScorecardBatch(ctx)
			}
		}
	}()
}

func (s *Service) processScorecardBatch(ctx context.Context) {
	deals, err := s.repo.GetDealsForScorecard(ctx, 100)
	if err != nil {
		return
	}

	for _, d := range deals {
		resp, statusCode, retryAfter, err := s.scorecardClient.GetDealScorecard(ctx, d.ID.String())
		if err != nil {
			continue
		}

		if statusCode == 429 {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if resp == nil {
			continue
		}

		mapped, ok := mapScorecardStatus(resp.Status)
		if !ok {
			continue
		}

		_ = s.repo.UpdateDealScorecard(ctx, d.ID, mapped, resp.Score)
	}
}
