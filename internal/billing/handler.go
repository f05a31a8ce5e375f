package billing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billforge/billforge/internal/catalog"
	"github.com/billforge/billforge/internal/directory"
	"github.com/billforge/billforge/internal/payments"
	"github.com/billforge/billforge/internal/platform/httpx"
)

// Handler exposes the billing lifecycle over HTTP.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, validate *validator.Validate, log *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validate, log: log}
}

// Mount attaches the per-type bill routers plus the combined summary. Sale
// bills address their counterparty as customer, purchase bills as vendor.
func (h *Handler) Mount(r chi.Router) {
	r.Mount("/salebills", h.typeRoutes(DocTypeSale, "customer"))
	r.Mount("/purchasebills", h.typeRoutes(DocTypePurchase, "vendor"))
	r.Get("/billing/summary", h.combinedSummary)
}

func (h *Handler) typeRoutes(docType DocumentType, partySegment string) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create(docType))
	r.Get("/", h.list(docType))
	r.Get("/summary", h.summary(docType))
	r.Get("/organization/{orgID}", h.listByOrg(docType))
	r.Get("/"+partySegment+"/{partyID}", h.listByParty(docType))
	r.Get("/{id}", h.get(docType))
	r.Put("/{id}", h.update(docType))
	r.Delete("/{id}", h.delete(docType))
	r.Put("/{id}/cancel", h.cancel(docType))
	r.Put("/{id}/refund", h.refund(docType))
	// legacy route shape kept for existing clients
	r.Put("/cancel/{id}", h.cancel(docType))
	return r
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var vErrs validator.ValidationErrors

	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.As(err, &vErrs),
		errors.Is(err, ErrValidation),
		errors.Is(err, directory.ErrOrganizationNotFound),
		errors.Is(err, directory.ErrPartyNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, payments.ErrPaymentNotFound),
		errors.Is(err, payments.ErrPaymentFieldMissing),
		errors.Is(err, ErrImmutableDocument),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrRefundedImmutable),
		errors.Is(err, ErrDeleteNotAllowed),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrDuplicateBillNumber),
		errors.Is(err, payments.ErrPaymentAlreadyLinked):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("billing request failed", "path", r.URL.Path, "error", err)
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

// actorID reads the authenticated user forwarded by the gateway. Zero means
// anonymous; billing records it as-is.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}

func (h *Handler) create(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBillRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			h.respondError(w, r, err)
			return
		}

		bill, err := h.svc.Create(r.Context(), docType, req, actorID(r))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.OK(w, http.StatusCreated, bill)
	}
}

func (h *Handler) get(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		bill, err := h.svc.Get(r.Context(), docType, id)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.OK(w, http.StatusOK, bill)
	}
}

func (h *Handler) update(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		var req UpdateBillRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			h.respondError(w, r, err)
			return
		}

		bill, err := h.svc.Update(r.Context(), docType, id, req, actorID(r))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.OK(w, http.StatusOK, bill)
	}
}

func (h *Handler) cancel(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if err := h.svc.Cancel(r.Context(), docType, id); err != nil {
			h.respondError(w, r, err)
			return
		}
		bill, err := h.svc.Get(r.Context(), docType, id)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.OKMessage(w, http.StatusOK, bill, "Bill cancelled")
	}
}

func (h *Handler) refund(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if err := h.svc.Refund(r.Context(), docType, id); err != nil {
			h.respondError(w, r, err)
			return
		}
		bill, err := h.svc.Get(r.Context(), docType, id)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.OKMessage(w, http.StatusOK, bill, "Bill refunded")
	}
}

func (h *Handler) delete(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if err := h.svc.Delete(r.Context(), docType, id); err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.OKMessage(w, http.StatusOK, nil, "Bill deleted")
	}
}

func (h *Handler) list(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseListRequest(r)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		h.respondList(w, r, docType, req)
	}
}

func (h *Handler) listByOrg(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := pathID(r, "orgID")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		req, err := parseListRequest(r)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		req.OrgID = &orgID
		h.respondList(w, r, docType, req)
	}
}

func (h *Handler) listByParty(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, err := pathID(r, "partyID")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		req, err := parseListRequest(r)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		req.PartyID = &partyID
		h.respondList(w, r, docType, req)
	}
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, docType DocumentType, req ListBillsRequest) {
	bills, total, err := h.svc.List(r.Context(), docType, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if bills == nil {
		bills = []BillingDocument{}
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"bills":  bills,
		"total":  total,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

func (h *Handler) summary(docType DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseSummaryRequest(r)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		sum, err := h.svc.Summary(r.Context(), docType, req)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.OK(w, http.StatusOK, sum)
	}
}

func (h *Handler) combinedSummary(w http.ResponseWriter, r *http.Request) {
	req, err := parseSummaryRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sum, err := h.svc.CombinedSummary(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, sum)
}

func parseListRequest(r *http.Request) (ListBillsRequest, error) {
	q := r.URL.Query()
	var req ListBillsRequest

	var err error
	if req.OrgID, err = queryInt64(q.Get("org")); err != nil {
		return req, err
	}
	if req.PartyID, err = queryInt64(q.Get("bill_to")); err != nil {
		return req, err
	}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		switch status {
		case StatusDraft, StatusIssued, StatusCancelled, StatusRefunded:
			req.Status = &status
		default:
			return req, errInvalidQuery("status", raw)
		}
	}
	if req.StartDate, err = queryTime(q.Get("startDate")); err != nil {
		return req, err
	}
	if req.EndDate, err = queryTime(q.Get("endDate")); err != nil {
		return req, err
	}
	if raw := q.Get("limit"); raw != "" {
		if req.Limit, err = strconv.Atoi(raw); err != nil {
			return req, errInvalidQuery("limit", raw)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if req.Offset, err = strconv.Atoi(raw); err != nil {
			return req, errInvalidQuery("offset", raw)
		}
	}
	return req, nil
}

func parseSummaryRequest(r *http.Request) (SummaryRequest, error) {
	q := r.URL.Query()
	var req SummaryRequest

	var err error
	if req.OrgID, err = queryInt64(q.Get("org")); err != nil {
		return req, err
	}
	if req.StartDate, err = queryTime(q.Get("startDate")); err != nil {
		return req, err
	}
	if req.EndDate, err = queryTime(q.Get("endDate")); err != nil {
		return req, err
	}
	return req, nil
}

func queryInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, errInvalidQuery("id", raw)
	}
	return &v, nil
}

func queryTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errInvalidQuery("date", raw)
}

func errInvalidQuery(name, raw string) error {
	return fmt.Errorf("%w: invalid %s %q", ErrValidation, name, raw)
}
