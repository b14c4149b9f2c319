package handler

import (
	"net/http"

	"distromart-be/internal/inventory"
	"distromart-be/internal/utils"
)

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var in inventory.Adjustment
	if err := h.decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, err := h.inventory.AdjustStock(r.Context(), actorOf(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) stockHistory(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logs, err := h.inventory.History(r.Context(), actorOf(r), productID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []inventory.Log{}
	}
	utils.WriteJSON(w, http.StatusOK, logs)
}
