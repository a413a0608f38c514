package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akomarov/dealflow-system/internal/finance"
	"github.com/akomarov/dealflow-system/internal/middleware"
	"github.com/akomarov/dealflow-system/internal/model"
	"github.com/akomarov/dealflow-system/internal/repository"
	"github.com/akomarov/dealflow-system/internal/risk"
	"github.com/akomarov/dealflow-system/internal/scoring"
	"github.com/akomarov/dealflow-system/internal/service"
)

type stubService struct {
	registerID  int64
	registerErr error
	authID      int64
	authErr     error

	company    *model.Company
	companies  []model.Company
	companyErr error
	contact    *model.Contact
	contacts   []model.Contact

	deal     *model.Deal
	deals    []model.Deal
	dealErr  error
	pipeline []service.PipelineColumn

	quote    *service.OfferQuote
	quoteErr error
	offer    *model.Offer
	offers   []model.Offer

	assessment  *risk.Assessment
	decision    *model.UnderwritingDecision
	decisionErr error

	document     *model.Document
	documents    []model.Document
	documentErr  error
	analytics    *service.AnalyticsSummary
	scorecardErr error
}

func (s *stubService) RegisterUser(_ context.Context, _, _ string) (int64, error) {
	return s.registerID, s.registerErr
}

func (s *stubService) AuthenticateUser(_ context.Context, _, _ string) (int64, error) {
	return s.authID, s.authErr
}

func (s *stubService) CreateCompany(_ context.Context, c model.Company) (*model.Company, error) {
	if s.company != nil {
		return s.company, s.companyErr
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	return &c, s.companyErr
}

func (s *stubService) GetCompanies(_ context.Context) ([]model.Company, error) {
	return s.companies, s.companyErr
}

func (s *stubService) GetCompanyByID(_ context.Context, _ uuid.UUID) (*model.Company, error) {
	return s.company, s.companyErr
}

func (s *stubService) CreateContact(_ context.Context, c model.Contact) (*model.Contact, error) {
	if s.contact != nil {
		return s.contact, nil
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	return &c, nil
}

func (s *stubService) GetContactsByCompany(_ context.Context, _ uuid.UUID) ([]model.Contact, error) {
	return s.contacts, nil
}

func (s *stubService) CreateDeal(_ context.Context, d model.Deal) (*model.Deal, error) {
	if s.dealErr != nil {
		return nil, s.dealErr
	}
	if s.deal != nil {
		return s.deal, nil
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	return &d, nil
}

func (s *stubService) GetDeals(_ context.Context) ([]model.Deal, error) {
	return s.deals, s.dealErr
}

func (s *stubService) GetDealByID(_ context.Context, _ uuid.UUID) (*model.Deal, error) {
	return s.deal, s.dealErr
}

func (s *stubService) UpdateDealStage(_ context.Context, _ uuid.UUID, _ model.DealStage) (*model.Deal, error) {
	return s.deal, s.dealErr
}

func (s *stubService) GetPipeline(_ context.Context) ([]service.PipelineColumn, error) {
	return s.pipeline, nil
}

func (s *stubService) PreviewOffer(_, _ float64, _ *float64, _ int, _ model.PaymentFrequency) (*service.OfferQuote, error) {
	return s.quote, s.quoteErr
}

func (s *stubService) CreateOffer(_ context.Context, _ uuid.UUID, _, _ float64, _ *float64, _ int, _ model.PaymentFrequency) (*model.Offer, error) {
	return s.offer, s.quoteErr
}

func (s *stubService) GetOffersByDeal(_ context.Context, _ uuid.UUID) ([]model.Offer, error) {
	return s.offers, nil
}

func (s *stubService) AssessDealRisk(_ context.Context, _ uuid.UUID) (*risk.Assessment, error) {
	return s.assessment, s.dealErr
}

func (s *stubService) RecordDecision(_ context.Context, _ uuid.UUID, _ int64, _ model.DecisionStatus, _, _ string) (*model.UnderwritingDecision, error) {
	return s.decision, s.decisionErr
}

func (s *stubService) GetDecisionByDeal(_ context.Context, _ uuid.UUID) (*model.UnderwritingDecision, error) {
	return s.decision, s.decisionErr
}

func (s *stubService) AddDocument(_ context.Context, d model.Document) (*model.Document, error) {
	if s.document != nil {
		return s.document, s.documentErr
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	return &d, s.documentErr
}

func (s *stubService) GetDocumentsByDeal(_ context.Context, _ uuid.UUID) ([]model.Document, error) {
	return s.documents, nil
}

func (s *stubService) SetDocumentUploaded(_ context.Context, _, _ uuid.UUID, _ bool) error {
	return s.documentErr
}

func (s *stubService) GetAnalyticsSummary(_ context.Context) (*service.AnalyticsSummary, error) {
	return s.analytics, nil
}

func (s *stubService) ApplyScorecardUpdate(_ context.Context, _ uuid.UUID, _ string, _ *float64) error {
	return s.scorecardErr
}

func newTestServer(t *testing.T, svc Service) (*httptest.Server, *http.Cookie) {
	t.Helper()

	auth := middleware.NewAuthMiddleware("test-secret")
	h := NewHandler(svc, zap.NewNop(), auth)
	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)

	rec := httptest.NewRecorder()
	auth.SetAuthCookie(rec, 1)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 auth cookie, got %d", len(cookies))
	}

	return srv, cookies[0]
}

func doJSON(t *testing.T, method, url string, body string, cookie *http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"success", `{"login":"broker","password":"secret"}`, nil, http.StatusOK},
		{"duplicate login", `{"login":"broker","password":"secret"}`, repository.ErrUserExists, http.StatusConflict},
		{"empty credentials", `{"login":"","password":""}`, nil, http.StatusBadRequest},
		{"broken json", `{"login":`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &stubService{registerID: 1, registerErr: tt.serviceErr})

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/user/register", tt.body, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK && len(resp.Cookies()) == 0 {
				t.Error("expected auth cookie to be set")
			}
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{authErr: service.ErrInvalidCredentials})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/user/login", `{"login":"broker","password":"wrong"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/pipeline", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestCreateCompany(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"name":"Acme Deli","industry":"Food"}`, http.StatusCreated},
		{"valid routing number", `{"name":"Acme Deli","routing_number":"021000021"}`, http.StatusCreated},
		{"invalid routing number", `{"name":"Acme Deli","routing_number":"123456789"}`, http.StatusUnprocessableEntity},
		{"missing name", `{"industry":"Food"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, cookie := newTestServer(t, &stubService{})

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/companies", tt.body, cookie)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestCreateDeal(t *testing.T) {
	companyID := uuid.New().String()

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"success", `{"company_id":"` + companyID + `","name":"Working capital","amount_requested":100000}`, nil, http.StatusCreated},
		{"missing amount", `{"company_id":"` + companyID + `","name":"Working capital"}`, nil, http.StatusBadRequest},
		{"negative amount", `{"company_id":"` + companyID + `","name":"Working capital","amount_requested":-5}`, nil, http.StatusBadRequest},
		{"bad company id", `{"company_id":"nope","name":"Working capital","amount_requested":100000}`, nil, http.StatusBadRequest},
		{"unknown stage", `{"company_id":"` + companyID + `","name":"Working capital","amount_requested":100000,"stage":"Limbo"}`, service.ErrUnknownStage, http.StatusUnprocessableEntity},
		{"company not found", `{"company_id":"` + companyID + `","name":"Working capital","amount_requested":100000}`, repository.ErrCompanyNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, cookie := newTestServer(t, &stubService{dealErr: tt.serviceErr})

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/deals", tt.body, cookie)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestGetPipeline(t *testing.T) {
	deal := model.Deal{
		ID:              uuid.New(),
		CompanyID:       uuid.New(),
		Name:            "Stale offer",
		AmountRequested: 200000,
		Stage:           model.StageOfferSent,
		UpdatedAt:       time.Now().Add(-12 * 24 * time.Hour),
	}
	svc := &stubService{
		pipeline: []service.PipelineColumn{
			{
				Stage:       model.StageOfferSent,
				UrgentCount: 1,
				Deals: []scoring.ScoredDeal{
					{
						Deal: deal,
						Priority: scoring.PriorityScore{
							Level:   scoring.LevelUrgent,
							Score:   100,
							Reasons: []string{"In stage for 12 days", "High-value deal: $200,000", "Offer pending response"},
						},
					},
				},
			},
		},
	}
	srv, cookie := newTestServer(t, svc)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/pipeline", "", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var columns []pipelineColumnResponse
	if err := json.NewDecoder(resp.Body).Decode(&columns); err != nil {
		t.Fatal(err)
	}

	if len(columns) != 1 {
		t.Fatalf("expected 1 column, got %d", len(columns))
	}
	if columns[0].UrgentCount != 1 {
		t.Errorf("urgent_count = %d, want 1", columns[0].UrgentCount)
	}
	if len(columns[0].Deals) != 1 || columns[0].Deals[0].Priority.Score != 100 {
		t.Errorf("unexpected deals payload: %+v", columns[0].Deals)
	}
	if len(columns[0].Deals[0].Priority.Reasons) != 3 {
		t.Errorf("expected 3 reasons, got %v", columns[0].Deals[0].Priority.Reasons)
	}
}

func TestPreviewOffer(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		quote      *service.OfferQuote
		quoteErr   error
		wantStatus int
	}{
		{
			name:       "success",
			body:       `{"amount":100000,"factor_rate":1.25,"term_months":12,"frequency":"daily"}`,
			quote:      &service.OfferQuote{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing fields",
			body:       `{"amount":100000}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid input",
			body:       `{"amount":100000,"factor_rate":0.8,"term_months":12,"frequency":"daily"}`,
			quoteErr:   fmt.Errorf("factor rate below 1: %w", finance.ErrInvalidInput),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, cookie := newTestServer(t, &stubService{quote: tt.quote, quoteErr: tt.quoteErr})

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/offers/preview", tt.body, cookie)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestRecordDecision(t *testing.T) {
	decision := &model.UnderwritingDecision{
		ID:        uuid.New(),
		DealID:    uuid.New(),
		Status:    model.DecisionApproved,
		DecidedBy: 1,
		DecidedAt: time.Now(),
	}

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"success", nil, http.StatusCreated},
		{"decline without reason", service.ErrInvalidDecision, http.StatusBadRequest},
		{"duplicate decision", repository.ErrDecisionExists, http.StatusConflict},
		{"deal not found", repository.ErrDealNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, cookie := newTestServer(t, &stubService{decision: decision, decisionErr: tt.serviceErr})

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/deals/"+decision.DealID.String()+"/decision", `{"status":"APPROVED"}`, cookie)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestScorecardWebhook(t *testing.T) {
	dealID := uuid.New().String()

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"ready", `{"deal_id":"` + dealID + `","status":"READY","score":74.5}`, nil, http.StatusOK},
		{"unknown status", `{"deal_id":"` + dealID + `","status":"MAYBE"}`, service.ErrUnknownScorecardStatus, http.StatusUnprocessableEntity},
		{"bad deal id", `{"deal_id":"nope","status":"READY"}`, nil, http.StatusBadRequest},
		{"deal not found", `{"deal_id":"` + dealID + `","status":"READY"}`, repository.ErrDealNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &stubService{scorecardErr: tt.serviceErr})

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/webhooks/deals", tt.body, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestUpdateDocument(t *testing.T) {
	srv, cookie := newTestServer(t, &stubService{documentErr: repository.ErrDocumentNotFound})

	url := srv.URL + "/api/deals/" + uuid.New().String() + "/documents/" + uuid.New().String()
	resp := doJSON(t, http.MethodPatch, url, `{"uploaded":true}`, cookie)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
