package handler

import (
	"net/http"

	"distromart-be/internal/payment"
	"distromart-be/internal/utils"

	"github.com/shopspring/decimal"
)

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"payment_method" validate:"required"`
	Notes  string          `json:"notes" validate:"max=1000"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	method, err := payment.ParseMethod(req.Method)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := actorOf(r)
	in := payment.Input{OrderID: orderID, Amount: req.Amount, Method: method, Notes: req.Notes}
	receipt, err := retry(r.Context(), h, func() (*payment.Receipt, error) {
		return h.payments.RecordPayment(r.Context(), actor, in)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	history, err := h.payments.History(r.Context(), actorOf(r), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []payment.Payment{}
	}
	utils.WriteJSON(w, http.StatusOK, history)
}
