package handler

import (
	"net/http"

	"distromart-be/internal/apperr"
	"distromart-be/internal/credit"
	"distromart-be/internal/utils"

	"github.com/shopspring/decimal"
)

func queryDecimal(r *http.Request, key string) (decimal.Decimal, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, apperr.Validation("invalid_query", "%s must be a decimal amount", key)
	}
	return d, nil
}

// checkPendingLimit answers whether an order of total with paid collected up
// front would fit the client's pending limit, without placing it.
func (h *Handler) checkPendingLimit(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := queryDecimal(r, "total")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paid, err := queryDecimal(r, "paid")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.credit.ValidatePendingLimit(r.Context(), actorOf(r), clientID, total, paid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) financialStatus(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.credit.FinancialStatus(r.Context(), actorOf(r), clientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, st)
}

type pendingLimitRequest struct {
	// null clears the limit
	Limit credit.PendingLimit `json:"pending_amount_limit"`
}

func (h *Handler) setPendingLimit(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req pendingLimitRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.credit.SetPendingLimit(r.Context(), actorOf(r), clientID, req.Limit); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) walletStatement(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.wallet.Statement(r.Context(), actorOf(r), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, st)
}
