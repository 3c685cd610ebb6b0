package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/smartkrishi/smartkrishi-go/internal/apiclient"
	"github.com/smartkrishi/smartkrishi-go/internal/model"
	"github.com/smartkrishi/smartkrishi-go/internal/service"
	"github.com/smartkrishi/smartkrishi-go/internal/session"
)

const msgSoilFailed = "Failed to fetch soil data"

type soilMetricsView struct {
	PH            string
	OrganicCarbon string
	Nitrogen      string
}

type soilView struct {
	Page
	Lat     string
	Lon     string
	Metrics *soilMetricsView
}

// SoilHandler serves the soil data page for one fixed coordinate.
type SoilHandler struct {
	service *service.SoilService
	views   *Views
	coord   model.Coordinate
	logger  *slog.Logger
}

// NewSoilHandler creates a new SoilHandler.
func NewSoilHandler(svc *service.SoilService, views *Views, coord model.Coordinate, logger *slog.Logger) *SoilHandler {
	return &SoilHandler{service: svc, views: views, coord: coord, logger: logger}
}

// HandleSoil handles GET /soil requests.
func (h *SoilHandler) HandleSoil(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	view := soilView{
		Page: Page{Title: "Soil data"},
		Lat:  strconv.FormatFloat(h.coord.Lat, 'f', -1, 64),
		Lon:  strconv.FormatFloat(h.coord.Lon, 'f', -1, 64),
	}

	m, err := h.service.GetSoil(r.Context(), h.coord)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			// The request client already erased the stored record.
			store.Logout()
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		h.logger.Warn("fetching soil data", "lat", h.coord.Lat, "lon", h.coord.Lon, "error", err)

		view.Error = msgSoilFailed
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Status != 0 && apiErr.Message != "" {
			view.Error = apiErr.Message
		}
		h.views.Render(w, http.StatusBadGateway, "soil", view)
		return
	}

	view.Metrics = &soilMetricsView{
		PH:            model.FormatMetric(m.PH),
		OrganicCarbon: model.FormatMetric(m.OrganicCarbon),
		Nitrogen:      model.FormatMetric(m.Nitrogen),
	}
	h.views.Render(w, http.StatusOK, "soil", view)
}
