// Package handler exposes the core operations as JSON over net/http.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"distromart-be/internal/apperr"
	"distromart-be/internal/auth"
	"distromart-be/internal/credit"
	"distromart-be/internal/inventory"
	"distromart-be/internal/logger"
	"distromart-be/internal/metrics"
	"distromart-be/internal/order"
	"distromart-be/internal/payment"
	"distromart-be/internal/reconcile"
	"distromart-be/internal/report"
	"distromart-be/internal/utils"
	"distromart-be/internal/wallet"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Reconciler runs one ledger sweep on demand.
type Reconciler interface {
	Run(ctx context.Context) (*reconcile.Result, error)
}

type Deps struct {
	Orders    order.Service
	Payments  payment.Service
	Credit    credit.Service
	Inventory inventory.Service
	Wallet    wallet.Service
	Reports   report.Service
	Reconcile Reconciler
	Metrics   *metrics.Registry
	// Retries bounds how often a conflicting mutation is attempted.
	Retries uint
}

type Handler struct {
	orders    order.Service
	payments  payment.Service
	credit    credit.Service
	inventory inventory.Service
	wallet    wallet.Service
	reports   report.Service
	reconcile Reconciler
	metrics   *metrics.Registry
	retries   uint
	validate  *validator.Validate
}

func New(d Deps) *Handler {
	h := &Handler{
		orders:    d.Orders,
		payments:  d.Payments,
		credit:    d.Credit,
		inventory: d.Inventory,
		wallet:    d.Wallet,
		reports:   d.Reports,
		reconcile: d.Reconcile,
		metrics:   d.Metrics,
		retries:   d.Retries,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	if h.metrics == nil {
		h.metrics = metrics.Default
	}
	if h.retries == 0 {
		h.retries = 3
	}
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.updateStatus)
	mux.HandleFunc("PUT /api/orders/{id}/assignee", h.assignOrder)
	mux.HandleFunc("POST /api/orders/{id}/payments", h.recordPayment)
	mux.HandleFunc("GET /api/orders/{id}/payments", h.paymentHistory)

	mux.HandleFunc("POST /api/clients/{id}/orders", h.createOrderForClient)
	mux.HandleFunc("GET /api/clients/{id}/pending-limit/check", h.checkPendingLimit)
	mux.HandleFunc("PUT /api/clients/{id}/pending-limit", h.setPendingLimit)
	mux.HandleFunc("GET /api/clients/{id}/financial-status", h.financialStatus)
	mux.HandleFunc("GET /api/clients/{id}/wallet", h.walletStatement)

	mux.HandleFunc("POST /api/inventory/adjustments", h.adjustStock)
	mux.HandleFunc("GET /api/products/{id}/stock-history", h.stockHistory)

	mux.HandleFunc("GET /api/reports/brand-pending", h.brandPending)
	mux.HandleFunc("GET /api/reports/salesmen/{id}", h.salesmanPerformance)
	mux.HandleFunc("GET /api/reports/dashboard", h.dashboard)
	mux.HandleFunc("GET /api/reports/overdue", h.overdue)

	mux.HandleFunc("POST /api/admin/reconcile", h.runReconcile)
	mux.HandleFunc("GET /debug/counters", h.counters)
}

func actorOf(r *http.Request) auth.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

var errBadRequest = apperr.Validation("bad_request", "malformed request")

// decode reads a JSON body into dst and runs struct validation on it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("bad_request", "malformed request body: %v", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validation("invalid_field", "field %s failed %s", fe.Namespace(), fe.Tag())
		}
		return errBadRequest
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid_id", "invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("invalid_query", "%s must be an integer", key)
	}
	return n, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("invalid_query", "%s must be a date (YYYY-MM-DD) or RFC 3339 time", key)
}

// retry repeats op while it fails with a conflict.
func retry[T any](ctx context.Context, h *Handler, op func() (T, error)) (T, error) {
	return apperr.RetryConflicts(ctx, h.retries, op)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if errors.Is(err, auth.ErrUnauthenticated) {
		status = http.StatusUnauthorized
	}

	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "handler"),
		zap.String("path", r.URL.Path),
		zap.String("kind", string(kind)),
		zap.String("code", apperr.CodeOf(err)),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Error(err))
	}

	body := utils.ErrorBody{
		Code:    apperr.CodeOf(err),
		Message: apperr.PublicMessage(err),
		OrderID: apperr.OrderIDOf(err),
	}
	utils.WriteJSONError(w, status, body)
}

func (h *Handler) counters(w http.ResponseWriter, r *http.Request) {
	if err := auth.Require(actorOf(r), auth.CapViewReports); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handler) runReconcile(w http.ResponseWriter, r *http.Request) {
	if err := auth.Require(actorOf(r), auth.CapRunReconcile); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.reconcile == nil {
		h.writeError(w, r, apperr.New(apperr.KindNotFound, "reconcile_disabled", "reconciliation is not configured"))
		return
	}
	res, err := h.reconcile.Run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}
