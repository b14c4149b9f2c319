package handler

import (
	"net/http"
	"time"

	"distromart-be/internal/utils"
)

func (h *Handler) brandPending(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.BrandPending(r.Context(), actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) salesmanPerformance(w http.ResponseWriter, r *http.Request) {
	salesmanID, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.reports.SalesmanPerformance(r.Context(), actorOf(r), salesmanID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reports.Dashboard(r.Context(), actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) overdue(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if t, err := queryTime(r, "as_of"); err != nil {
		h.writeError(w, r, err)
		return
	} else if t != nil {
		asOf = *t
	}

	rows, err := h.reports.OverdueCollections(r.Context(), actorOf(r), asOf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}
