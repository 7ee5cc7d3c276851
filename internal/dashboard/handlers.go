package dashboard

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/common"
)

// Handler serves the admin dashboard endpoint.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

// Stats handles GET /admin/dashboard. Malformed or out-of-bounds query
// parameters fall back to "now" anchoring instead of failing the request.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "dashboard service not configured", nil)
		return
	}
	q := r.URL.Query()
	kind := ParseRangeKind(q.Get("range"))
	sel := Selection{
		Year:  common.AtoiDefault(q.Get("year"), 0),
		Month: common.AtoiDefault(q.Get("month"), 0),
	}
	if raw := q.Get("weekStart"); raw != "" {
		if day, err := time.Parse("2006-01-02", raw); err == nil {
			sel.WeekStart = day
		}
	}
	if raw := q.Get("day"); raw != "" {
		if day, err := time.Parse("2006-01-02", raw); err == nil {
			sel.Day = day
		}
	}
	includeTestAccount := common.BoolDefault(q.Get("includeTestAccount"), false)

	stats, err := h.Svc.Stats(r.Context(), kind, sel, includeTestAccount)
	if err != nil {
		h.Log.Error().Err(err).Str("range", string(kind)).Msg("dashboard aggregation failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "Une erreur est survenue lors du calcul des statistiques.", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"stats": stats})
}
