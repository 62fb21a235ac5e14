package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ogurasousui/company-registry/internal/core/company"
	"go.uber.org/zap"
)

// NextPageTokenHeader は次ページのトークンを返すレスポンスヘッダです。
const NextPageTokenHeader = "X-Next-Page-Token"

// CompanyRecorder は会社の作成・更新件数を記録します。
type CompanyRecorder interface {
	IncCompaniesCreated()
	IncCompaniesUpdated()
}

type noopRecorder struct{}

func (noopRecorder) IncCompaniesCreated() {}
func (noopRecorder) IncCompaniesUpdated() {}

// CompanyHandler は会社 API の HTTP 実装です。
type CompanyHandler struct {
	svc      company.UseCase
	logger   *zap.Logger
	recorder CompanyRecorder
}

// NewCompanyHandler は CompanyHandler を生成します。
func NewCompanyHandler(svc company.UseCase, logger *zap.Logger, recorder CompanyRecorder) *CompanyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &CompanyHandler{svc: svc, logger: logger, recorder: recorder}
}

// CompanyRequest は作成・更新要求のボディです。
type CompanyRequest struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Ticker   string  `json:"ticker"`
	Exchange string  `json:"exchange"`
	ISIN     string  `json:"isin"`
	Website  *string `json:"website,omitempty"`
}

// CompanyResponse は会社の応答表現です。
type CompanyResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Ticker   string  `json:"ticker"`
	Exchange string  `json:"exchange"`
	ISIN     string  `json:"isin"`
	Website  *string `json:"website,omitempty"`
}

// Register は会社 API のルートを登録します。
func (h *CompanyHandler) Register(r chi.Router) {
	r.Route("/api/companies", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/", h.handleUpdate)
		r.Get("/isin", h.handleGetByISIN)
		r.Get("/isin/{isin}", h.handleGetByISIN)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
	})
}

func (h *CompanyHandler) handleList(w http.ResponseWriter, r *http.Request) {
	in := company.ListCompaniesInput{PageToken: r.URL.Query().Get("pageToken")}

	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, h.logger, errInvalidPageSize)
			return
		}
		in.PageSize = size
	}

	result, err := h.svc.ListCompanies(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	body := make([]CompanyResponse, 0, len(result.Companies))
	for _, c := range result.Companies {
		body = append(body, toCompanyResponse(c))
	}

	if result.NextPageToken != "" {
		w.Header().Set(NextPageTokenHeader, result.NextPageToken)
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *CompanyHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.GetCompany(r.Context(), company.GetCompanyInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(found))
}

func (h *CompanyHandler) handleGetByISIN(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.GetCompanyByISIN(r.Context(), company.GetCompanyByISINInput{ISIN: chi.URLParam(r, "isin")})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(found))
}

func (h *CompanyHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.svc.CreateCompany(r.Context(), company.CreateCompanyInput{
		Name:     req.Name,
		Ticker:   req.Ticker,
		Exchange: req.Exchange,
		ISIN:     req.ISIN,
		Website:  req.Website,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.recorder.IncCompaniesCreated()
	h.logger.Info("company created",
		zap.String("id", created.ID),
		zap.String("isin", created.ISIN),
	)

	w.Header().Set("Location", "/api/companies/"+created.ID)
	writeJSON(w, http.StatusCreated, toCompanyResponse(created))
}

func (h *CompanyHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id, err := resolveUpdateID(chi.URLParam(r, "id"), req.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updated, err := h.svc.UpdateCompany(r.Context(), company.UpdateCompanyInput{
		ID:       id,
		Name:     req.Name,
		Ticker:   req.Ticker,
		Exchange: req.Exchange,
		ISIN:     req.ISIN,
		Website:  req.Website,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.recorder.IncCompaniesUpdated()
	h.logger.Info("company updated",
		zap.String("id", updated.ID),
		zap.String("isin", updated.ISIN),
	)

	writeJSON(w, http.StatusOK, toCompanyResponse(updated))
}

// resolveUpdateID はパスとボディの ID から更新対象を決定します。
func resolveUpdateID(pathID, bodyID string) (string, error) {
	pathID = strings.TrimSpace(pathID)
	bodyID = strings.TrimSpace(bodyID)

	switch {
	case pathID == "" && bodyID == "":
		return "", errIDRequired
	case pathID == "":
		return bodyID, nil
	case bodyID == "":
		return pathID, nil
	case !strings.EqualFold(pathID, bodyID):
		return "", errIDMismatch
	default:
		return pathID, nil
	}
}

func toCompanyResponse(c *company.Company) CompanyResponse {
	return CompanyResponse{
		ID:       c.ID,
		Name:     c.Name,
		Ticker:   c.Ticker,
		Exchange: c.Exchange,
		ISIN:     c.ISIN,
		Website:  c.Website,
	}
}
