package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// DashboardHandler serves role-specific statistics.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboardService}
}

// Stats GET /v1/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), principal.Actor())
	if err != nil {
		return err
	}
	body := dto.NewDashboardResponse(stats)
	if body == nil {
		return apperrors.NewForbidden("role not recognized")
	}
	return c.JSON(fiber.Map{"data": body})
}
