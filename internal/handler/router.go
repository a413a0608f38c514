package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/akomarov/dealflow-system/internal/middleware"
)

// SetupRouter настраивает маршруты и middleware HTTP-сервера.
func (h *Handler) SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.GzipMiddleware)
	r.Use(middleware.Logger(h.logger))

	r.Post("/api/user/register", h.Register)
	r.Post("/api/user/login", h.Login)
	r.Post("/api/webhooks/deals", h.ScorecardWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/api/companies", h.CreateCompany)
		r.Get("/api/companies", h.GetCompanies)
		r.Get("/api/companies/{companyID}", h.GetCompany)
		r.Post("/api/companies/{companyID}/contacts", h.CreateContact)
		r.Get("/api/companies/{companyID}/contacts", h.GetContacts)

		r.Post("/api/deals", h.CreateDeal)
		r.Get("/api/deals", h.GetDeals)
		r.Get("/api/deals/{dealID}", h.GetDeal)
		r.Patch("/api/deals/{dealID}/stage", h.UpdateDealStage)

		r.Get("/api/pipeline", h.GetPipeline)

		r.Post("/api/offers/preview", h.PreviewOffer)
		r.Post("/api/deals/{dealID}/offers", h.CreateOffer)
		r.Get("/api/deals/{dealID}/offers", h.GetOffers)

		r.Get("/api/deals/{dealID}/risk", h.GetDealRisk)
		r.Post("/api/deals/{dealID}/decision", h.RecordDecision)
		r.Get("/api/deals/{dealID}/decision", h.GetDecision)

		r.Post("/api/deals/{dealID}/documents", h.AddDocument)
		r.Get("/api/deals/{dealID}/documents", h.GetDocuments)
		r.Patch("/api/deals/{dealID}/documents/{docID}", h.UpdateDocument)

		r.Get("/api/analytics/summary", h.GetAnalytics)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
