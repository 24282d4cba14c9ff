package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manpowerhq/compliance-api/internal/service"
	"github.com/manpowerhq/compliance-api/pkg/response"
)

// DashboardHandler wires the overview endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Overview godoc
// @Summary Compliance dashboard
// @Description Global summary, per-company cards sorted worst first, expiring documents feed and recent activity
// @Tags Dashboard
// @Produce json
// @Param as_of query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	overview, cached, err := h.dashboard.Overview(c.Request.Context(), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil, map[string]interface{}{"cached": cached})
}
