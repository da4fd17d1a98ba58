package history

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /history.
func (h *Handler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// ForClient handles GET /clients/:id/history.
func (h *Handler) ForClient(c *gin.Context) {
	entries, err := h.service.ForClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Wipe handles DELETE /history.
func (h *Handler) Wipe(c *gin.Context) {
	if err := h.service.Wipe(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "history wiped"})
}
