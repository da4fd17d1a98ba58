package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-backend/internal/client"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Summary handles GET /dashboard/summary. The client-list filters apply
// here too, so the dashboard can be scoped to a branch or advisor.
func (h *Handler) Summary(c *gin.Context) {
	f := client.Filter{
		Branch:  c.Query("branch"),
		Advisor: c.Query("advisor"),
		Status:  c.Query("status"),
		Source:  c.Query("source"),
	}
	summary, err := h.service.Summary(c.Request.Context(), f)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
