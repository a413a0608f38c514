// Package handler содержит HTTP-обработчики API сервиса dealflow.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akomarov/dealflow-system/internal/finance"
	"github.com/akomarov/dealflow-system/internal/middleware"
	"github.com/akomarov/dealflow-system/internal/model"
	"github.com/akomarov/dealflow-system/internal/repository"
	"github.com/akomarov/dealflow-system/internal/risk"
	"github.com/akomarov/dealflow-system/internal/service"
	"github.com/akomarov/dealflow-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	CreateCompany(ctx context.Context, company model.Company) (*model.Company, error)
	GetCompanies(ctx context.Context) ([]model.Company, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
	CreateContact(ctx context.Context, contact model.Contact) (*model.Contact, error)
	GetContactsByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Contact, error)
	CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error)
	GetDeals(ctx context.Context) ([]model.Deal, error)
	GetDealByID(ctx context.Context, id uuid.UUID) (*model.Deal, error)
	UpdateDealStage(ctx context.Context, id uuid.UUID, stage model.DealStage) (*model.Deal, error)
	GetPipeline(ctx context.Context) ([]service.PipelineColumn, error)
	PreviewOffer(amount, factorRate float64, buyRate *float64, termMonths int, frequency model.PaymentFrequency) (*service.OfferQuote, error)
	CreateOffer(ctx context.Context, dealID uuid.UUID, amount, factorRate float64, buyRate *float64, termMonths int, frequency model.PaymentFrequency) (*model.Offer, error)
	GetOffersByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Offer, error)
	AssessDealRisk(ctx context.Context, dealID uuid.UUID) (*risk.Assessment, error)
	RecordDecision(ctx context.Context, dealID uuid.UUID, userID int64, status model.DecisionStatus, declineReason, notes string) (*model.UnderwritingDecision, error)
	GetDecisionByDeal(ctx context.Context, dealID uuid.UUID) (*model.UnderwritingDecision, error)
	AddDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	GetDocumentsByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Document, error)
	SetDocumentUploaded(ctx context.Context, dealID, docID uuid.UUID, uploaded bool) error
	GetAnalyticsSummary(ctx context.Context) (*service.AnalyticsSummary, error)
	ApplyScorecardUpdate(ctx context.Context, dealID uuid.UUID, status string, score *float64) error
}

// Handler реализует HTTP-обработчики API сервиса dealflow.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

type companyRequest struct {
	Name            string   `json:"name"`
	Industry        string   `json:"industry"`
	YearsInBusiness *float64 `json:"years_in_business,omitempty"`
	RoutingNumber   string   `json:"routing_number,omitempty"`
}

type companyResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Industry        string   `json:"industry"`
	YearsInBusiness *float64 `json:"years_in_business,omitempty"`
	RoutingNumber   string   `json:"routing_number,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

func toCompanyResponse(c *model.Company) companyResponse {
	return companyResponse{
		ID:              c.ID.String(),
		Name:            c.Name,
		Industry:        c.Industry,
		YearsInBusiness: c.YearsInBusiness,
		RoutingNumber:   c.RoutingNumber,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
}

// CreateCompany создаёт компанию-мерчанта.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.RoutingNumber != "" && !validation.IsValidRoutingNumber(req.RoutingNumber) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	company, err := h.service.CreateCompany(r.Context(), model.Company{
		Name:            req.Name,
		Industry:        req.Industry,
		YearsInBusiness: req.YearsInBusiness,
		RoutingNumber:   req.RoutingNumber,
	})
	if err != nil {
		h.logger.Error("create company error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toCompanyResponse(company))
}

// GetCompanies возвращает список компаний.
func (h *Handler) GetCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.GetCompanies(r.Context())
	if err != nil {
		h.logger.Error("get companies error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]companyResponse, 0, len(companies))
	for i := range companies {
		resp = append(resp, toCompanyResponse(&companies[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetCompany возвращает компанию по идентификатору.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "companyID")
	if !ok {
		return
	}

	company, err := h.service.GetCompanyByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get company error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toCompanyResponse(company))
}

type contactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type contactResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

func toContactResponse(c *model.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID.String(),
		CompanyID: c.CompanyID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// CreateContact добавляет контактное лицо компании.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.pathUUID(w, r, "companyID")
	if !ok {
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	contact, err := h.service.CreateContact(r.Context(), model.Contact{
		CompanyID: companyID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("create contact error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toContactResponse(contact))
}

// GetContacts возвращает контакты компании.
func (h *Handler) GetContacts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.pathUUID(w, r, "companyID")
	if !ok {
		return
	}

	contacts, err := h.service.GetContactsByCompany(r.Context(), companyID)
	if err != nil {
		h.logger.Error("get contacts error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]contactResponse, 0, len(contacts))
	for i := range contacts {
		resp = append(resp, toContactResponse(&contacts[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type dealRequest struct {
	CompanyID           string   `json:"company_id"`
	Name                string   `json:"name"`
	AmountRequested     *float64 `json:"amount_requested"`
	Stage               string   `json:"stage,omitempty"`
	CreditScore         *int     `json:"credit_score,omitempty"`
	MonthlyRevenue      *float64 `json:"monthly_revenue,omitempty"`
	AverageDailyBalance *float64 `json:"average_daily_balance,omitempty"`
}

type dealResponse struct {
	ID                  string   `json:"id"`
	CompanyID           string   `json:"company_id"`
	Name                string   `json:"name"`
	AmountRequested     float64  `json:"amount_requested"`
	Stage               string   `json:"stage"`
	CreditScore         *int     `json:"credit_score,omitempty"`
	MonthlyRevenue      *float64 `json:"monthly_revenue,omitempty"`
	AverageDailyBalance *float64 `json:"average_daily_balance,omitempty"`
	ScorecardStatus     string   `json:"scorecard_status"`
	ScorecardScore      *float64 `json:"scorecard_score,omitempty"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

func toDealResponse(d *model.Deal) dealResponse {
	return dealResponse{
		ID:                  d.ID.String(),
		CompanyID:           d.CompanyID.String(),
		Name:                d.Name,
		AmountRequested:     d.AmountRequested,
		Stage:               string(d.Stage),
		CreditScore:         d.CreditScore,
		MonthlyRevenue:      d.MonthlyRevenue,
		AverageDailyBalance: d.AverageDailyBalance,
		ScorecardStatus:     string(d.ScorecardStatus),
		ScorecardScore:      d.ScorecardScore,
		CreatedAt:           d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           d.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateDeal заводит новую сделку.
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req dealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil || req.Name == "" || req.AmountRequested == nil || *req.AmountRequested <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	deal, err := h.service.CreateDeal(r.Context(), model.Deal{
		CompanyID:           companyID,
		Name:                req.Name,
		AmountRequested:     *req.AmountRequested,
		Stage:               model.DealStage(req.Stage),
		CreditScore:         req.CreditScore,
		MonthlyRevenue:      req.MonthlyRevenue,
		AverageDailyBalance: req.AverageDailyBalance,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStage):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrCompanyNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("create deal error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toDealResponse(deal))
}

// GetDeals возвращает все сделки.
func (h *Handler) GetDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.service.GetDeals(r.Context())
	if err != nil {
		h.logger.Error("get deals error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]dealResponse, 0, len(deals))
	for i := range deals {
		resp = append(resp, toDealResponse(&deals[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetDeal возвращает сделку по идентификатору.
func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	deal, err := h.service.GetDealByID(r.Context(), dealID)
	if err != nil {
		if errors.Is(err, repository.ErrDealNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get deal error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toDealResponse(deal))
}

type stageRequest struct {
	Stage string `json:"stage"`
}

// UpdateDealStage переводит сделку на новый этап воронки.
func (h *Handler) UpdateDealStage(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Stage == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	deal, err := h.service.UpdateDealStage(r.Context(), dealID, model.DealStage(req.Stage))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStage):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrDealNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update deal stage error", zap.Error(err), zap.String("deal", dealID.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toDealResponse(deal))
}

type priorityResponse struct {
	Level   string   `json:"level"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

type pipelineCardResponse struct {
	dealResponse
	Priority priorityResponse `json:"priority"`
}

type pipelineColumnResponse struct {
	Stage       string                 `json:"stage"`
	UrgentCount int                    `json:"urgent_count"`
	HighCount   int                    `json:"high_count"`
	Deals       []pipelineCardResponse `json:"deals"`
}

// GetPipeline возвращает канбан-доску с карточками, упорядоченными по приоритету.
func (h *Handler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	columns, err := h.service.GetPipeline(r.Context())
	if err != nil {
		h.logger.Error("get pipeline error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]pipelineColumnResponse, 0, len(columns))
	for _, col := range columns {
		cards := make([]pipelineCardResponse, 0, len(col.Deals))
		for i := range col.Deals {
			reasons := col.Deals[i].Priority.Reasons
			if reasons == nil {
				reasons = []string{}
			}
			cards = append(cards, pipelineCardResponse{
				dealResponse: toDealResponse(&col.Deals[i].Deal),
				Priority: priorityResponse{
					Level:   string(col.Deals[i].Priority.Level),
					Score:   col.Deals[i].Priority.Score,
					Reasons: reasons,
				},
			})
		}

		resp = append(resp, pipelineColumnResponse{
			Stage:       string(col.Stage),
			UrgentCount: col.UrgentCount,
			HighCount:   col.HighCount,
			Deals:       cards,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type offerRequest struct {
	Amount     *float64 `json:"amount"`
	FactorRate *float64 `json:"factor_rate"`
	BuyRate    *float64 `json:"buy_rate,omitempty"`
	TermMonths *int     `json:"term_months"`
	Frequency  string   `json:"frequency"`
}

type offerQuoteResponse struct {
	TotalPayback  float64 `json:"total_payback"`
	DailyPayment  float64 `json:"daily_payment"`
	WeeklyPayment float64 `json:"weekly_payment"`
	Commission    float64 `json:"commission"`
}

type offerResponse struct {
	ID            string   `json:"id"`
	DealID        string   `json:"deal_id"`
	Amount        float64  `json:"amount"`
	FactorRate    float64  `json:"factor_rate"`
	BuyRate       *float64 `json:"buy_rate,omitempty"`
	TermMonths    int      `json:"term_months"`
	Frequency     string   `json:"frequency"`
	TotalPayback  float64  `json:"total_payback"`
	DailyPayment  float64  `json:"daily_payment"`
	WeeklyPayment float64  `json:"weekly_payment"`
	Commission    float64  `json:"commission"`
	CreatedAt     string   `json:"created_at"`
}

func toOfferResponse(o *model.Offer) offerResponse {
	return offerResponse{
		ID:            o.ID.String(),
		DealID:        o.DealID.String(),
		Amount:        o.Amount,
		FactorRate:    o.FactorRate,
		BuyRate:       o.BuyRate,
		TermMonths:    o.TermMonths,
		Frequency:     string(o.Frequency),
		TotalPayback:  o.TotalPayback,
		DailyPayment:  o.DailyPayment,
		WeeklyPayment: o.WeeklyPayment,
		Commission:    o.Commission,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) decodeOfferRequest(w http.ResponseWriter, r *http.Request) (*offerRequest, bool) {
	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return nil, false
	}

	// Отсутствие обязательного числового поля отклоняется на границе,
	// чтобы NaN не доехал до денежного отображения.
	if req.Amount == nil || req.FactorRate == nil || req.TermMonths == nil || req.Frequency == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return nil, false
	}

	return &req, true
}

// PreviewOffer рассчитывает график платежей без сохранения оффера.
func (h *Handler) PreviewOffer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeOfferRequest(w, r)
	if !ok {
		return
	}

	quote, err := h.service.PreviewOffer(*req.Amount, *req.FactorRate, req.BuyRate, *req.TermMonths, model.PaymentFrequency(req.Frequency))
	if err != nil {
		if errors.Is(err, finance.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("preview offer error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, offerQuoteResponse{
		TotalPayback:  quote.Schedule.TotalPayback,
		DailyPayment:  quote.Schedule.DailyPayment,
		WeeklyPayment: quote.Schedule.WeeklyPayment,
		Commission:    quote.Commission,
	})
}

// CreateOffer рассчитывает и сохраняет оффер по сделке.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	req, ok := h.decodeOfferRequest(w, r)
	if !ok {
		return
	}

	offer, err := h.service.CreateOffer(r.Context(), dealID, *req.Amount, *req.FactorRate, req.BuyRate, *req.TermMonths, model.PaymentFrequency(req.Frequency))
	if err != nil {
		switch {
		case errors.Is(err, finance.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrDealNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("create offer error", zap.Error(err), zap.String("deal", dealID.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toOfferResponse(offer))
}

// GetOffers возвращает офферы по сделке.
func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	offers, err := h.service.GetOffersByDeal(r.Context(), dealID)
	if err != nil {
		h.logger.Error("get offers error", zap.Error(err), zap.String("deal", dealID.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]offerResponse, 0, len(offers))
	for i := range offers {
		resp = append(resp, toOfferResponse(&offers[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetDealRisk возвращает рекомендательную оценку риска сделки.
func (h *Handler) GetDealRisk(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	assessment, err := h.service.AssessDealRisk(r.Context(), dealID)
	if err != nil {
		if errors.Is(err, repository.ErrDealNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("assess deal risk error", zap.Error(err), zap.String("deal", dealID.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, assessment)
}

type decisionRequest struct {
	Status        string `json:"status"`
	DeclineReason string `json:"decline_reason,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type decisionResponse struct {
	ID            string `json:"id"`
	DealID        string `json:"deal_id"`
	Status        string `json:"status"`
	DeclineReason string `json:"decline_reason,omitempty"`
	Notes         string `json:"notes,omitempty"`
	DecidedBy     int64  `json:"decided_by"`
	DecidedAt     string `json:"decided_at"`
}

func toDecisionResponse(d *model.UnderwritingDecision) decisionResponse {
	return decisionResponse{
		ID:            d.ID.String(),
		DealID:        d.DealID.String(),
		Status:        string(d.Status),
		DeclineReason: d.DeclineReason,
		Notes:         d.Notes,
		DecidedBy:     d.DecidedBy,
		DecidedAt:     d.DecidedAt.Format(time.RFC3339),
	}
}

// RecordDecision фиксирует решение андеррайтера по сделке.
func (h *Handler) RecordDecision(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	decision, err := h.service.RecordDecision(r.Context(), dealID, userID, model.DecisionStatus(req.Status), req.DeclineReason, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDecision):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrDecisionExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, repository.ErrDealNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("record decision error", zap.Error(err), zap.String("deal", dealID.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toDecisionResponse(decision))
}

// GetDecision возвращает решение андеррайтера по сделке.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	decision, err := h.service.GetDecisionByDeal(r.Context(), dealID)
	if err != nil {
		if errors.Is(err, repository.ErrDecisionNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get decision error", zap.Error(err), zap.String("deal", dealID.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toDecisionResponse(decision))
}

type documentRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type documentResponse struct {
	ID        string `json:"id"`
	DealID    string `json:"deal_id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Uploaded  bool   `json:"uploaded"`
	CreatedAt string `json:"created_at"`
}

func toDocumentResponse(d *model.Document) documentResponse {
	return documentResponse{
		ID:        d.ID.String(),
		DealID:    d.DealID.String(),
		Name:      d.Name,
		Type:      d.Type,
		Uploaded:  d.Uploaded,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
}

// AddDocument добавляет документ в чек-лист сделки.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	doc, err := h.service.AddDocument(r.Context(), model.Document{
		DealID: dealID,
		Name:   req.Name,
		Type:   req.Type,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDealNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("add document error", zap.Error(err), zap.String("deal", dealID.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// GetDocuments возвращает чек-лист документов сделки.
func (h *Handler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	docs, err := h.service.GetDocumentsByDeal(r.Context(), dealID)
	if err != nil {
		h.logger.Error("get documents error", zap.Error(err), zap.String("deal", dealID.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]documentResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, toDocumentResponse(&docs[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type documentStatusRequest struct {
	Uploaded *bool `json:"uploaded"`
}

// UpdateDocument отмечает документ чек-листа как загруженный или нет.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	dealID, ok := h.pathUUID(w, r, "dealID")
	if !ok {
		return
	}

	docID, ok := h.pathUUID(w, r, "docID")
	if !ok {
		return
	}

	var req documentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Uploaded == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetDocumentUploaded(r.Context(), dealID, docID, *req.Uploaded); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("update document error", zap.Error(err), zap.String("deal", dealID.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type stageCountResponse struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

type analyticsResponse struct {
	TotalDeals   int                  `json:"total_deals"`
	StageCounts  []stageCountResponse `json:"stage_counts"`
	FundedVolume float64              `json:"funded_volume"`
	UrgentDeals  int                  `json:"urgent_deals"`
	HighDeals    int                  `json:"high_deals"`
}

// GetAnalytics возвращает сводку по воронке для дашборда.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetAnalyticsSummary(r.Context())
	if err != nil {
		h.logger.Error("get analytics error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	counts := make([]stageCountResponse, 0, len(summary.StageCounts))
	for _, sc := range summary.StageCounts {
		counts = append(counts, stageCountResponse{Stage: string(sc.Stage), Count: sc.Count})
	}

	h.writeJSON(w, http.StatusOK, analyticsResponse{
		TotalDeals:   summary.TotalDeals,
		StageCounts:  counts,
		FundedVolume: summary.FundedVolume,
		UrgentDeals:  summary.UrgentDeals,
		HighDeals:    summary.HighDeals,
	})
}

type scorecardWebhookRequest struct {
	DealID string   `json:"deal_id"`
	Status string   `json:"status"`
	Score  *float64 `json:"score,omitempty"`
}

// ScorecardWebhook принимает уведомление внешней системы автоматизации
// о готовности скоркарты.
func (h *Handler) ScorecardWebhook(w http.ResponseWriter, r *http.Request) {
	var req scorecardWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	dealID, err := uuid.Parse(req.DealID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.ApplyScorecardUpdate(r.Context(), dealID, req.Status, req.Score); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownScorecardStatus):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrDealNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("scorecard webhook error", zap.Error(err), zap.String("deal", req.DealID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
