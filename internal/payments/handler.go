package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billforge/billforge/internal/platform/httpx"
)

// Handler exposes standalone payment record endpoints. Records created here
// start unlinked; a bill claims them later through its payment slots.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, validate *validator.Validate, log *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validate, log: log}
}

// Routes mounts the payment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	return r
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var vErrs validator.ValidationErrors

	switch {
	case errors.Is(err, ErrPaymentNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.As(err, &vErrs), errors.Is(err, ErrPaymentFieldMissing):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("payments request failed", "path", r.URL.Path, "error", err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreatePaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		h.respondError(w, r, err)
		return
	}

	createdBy, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	rec, err := h.svc.Create(r.Context(), in, createdBy)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, rec)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusNotFound, ErrPaymentNotFound.Error())
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, rec)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req ListPaymentsRequest

	parseRef := func(name string) (*int64, bool) {
		raw := q.Get(name)
		if raw == "" {
			return nil, true
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return nil, false
		}
		return &v, true
	}

	var ok bool
	if req.SaleBillID, ok = parseRef("salebill"); !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid salebill filter")
		return
	}
	if req.PurchaseBillID, ok = parseRef("purchasebill"); !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchasebill filter")
		return
	}
	if req.OrgID, ok = parseRef("org"); !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid org filter")
		return
	}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		switch status {
		case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
			req.Status = &status
		default:
			httpx.Fail(w, http.StatusBadRequest, "invalid status filter")
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		req.Limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		req.Offset, _ = strconv.Atoi(raw)
	}

	records, total, err := h.svc.List(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []PaymentRecord{}
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"payments": records,
		"total":    total,
		"limit":    req.Limit,
		"offset":   req.Offset,
	})
}
