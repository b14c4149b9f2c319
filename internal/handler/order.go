package handler

import (
	"net/http"
	"strconv"

	"distromart-be/internal/apperr"
	"distromart-be/internal/ledger"
	"distromart-be/internal/order"
	"distromart-be/internal/utils"

	"github.com/google/uuid"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var draft order.Draft
	if err := h.decode(w, r, &draft); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := actorOf(r)
	o, err := retry(r.Context(), h, func() (*order.Order, error) {
		return h.orders.PlaceOrder(r.Context(), actor, draft)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) createOrderForClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var draft order.Draft
	if err := h.decode(w, r, &draft); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := actorOf(r)
	o, err := retry(r.Context(), h, func() (*order.Order, error) {
		return h.orders.CreateOrderForClient(r.Context(), actor, clientID, draft)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), actorOf(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func parseFilter(r *http.Request) (order.Filter, error) {
	q := r.URL.Query()
	var f order.Filter

	if v := q.Get("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.Validation("invalid_query", "client_id must be a uuid")
		}
		f.ClientID = &id
	}
	if v := q.Get("status"); v != "" {
		st, ok := order.ParseStatus(v)
		if !ok {
			return f, apperr.Validation("invalid_query", "unknown order status %q", v)
		}
		f.Status = &st
	}
	if v := q.Get("payment_status"); v != "" {
		ps := ledger.PaymentStatus(v)
		switch ps {
		case ledger.PaymentPending, ledger.PaymentPartial, ledger.PaymentPaid:
		default:
			return f, apperr.Validation("invalid_query", "unknown payment status %q", v)
		}
		f.PaymentStatus = &ps
	}
	f.OutstandingOnly, _ = strconv.ParseBool(q.Get("outstanding"))
	f.SortAsc, _ = strconv.ParseBool(q.Get("asc"))
	f.Search = q.Get("q")

	switch s := order.SortField(q.Get("sort")); s {
	case "", order.SortCreatedAt, order.SortTotal, order.SortPending:
		f.SortField = s
	default:
		return f, apperr.Validation("invalid_query", "cannot sort by %q", s)
	}

	var err error
	if f.DateFrom, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.DateTo, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Page, err = queryInt(r, "page"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orders, err := h.orders.List(r.Context(), actorOf(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.orders.CancelOrder(r.Context(), actorOf(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	st, ok := order.ParseStatus(req.Status)
	if !ok {
		h.writeError(w, r, apperr.Validation("invalid_status", "unknown order status %q", req.Status))
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), actorOf(r), id, st)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

type assignRequest struct {
	SubAdminID uuid.UUID `json:"sub_admin_id" validate:"required"`
}

func (h *Handler) assignOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req assignRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.orders.Assign(r.Context(), actorOf(r), id, req.SubAdminID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}
