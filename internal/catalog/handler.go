package catalog

import (
	"net/http"
	"strconv"

	"crm-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for catalogs
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type SaveRequest struct {
	Values []string `json:"values" binding:"required"`
}

func (h *Handler) Show(c *gin.Context) {
	name := c.Param("name")
	if !Known(name) {
		c.Error(apperr.NotFound(nil).WithMessage("Unknown catalog"))
		return
	}
	vals, err := h.service.Load(c.Request.Context(), name)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "values": vals})
}

func (h *Handler) Save(c *gin.Context) {
	name := c.Param("name")
	if !Known(name) {
		c.Error(apperr.NotFound(nil).WithMessage("Unknown catalog"))
		return
	}
	var form SaveRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apperr.InvalidInput(err))
		return
	}
	vals, err := h.service.Save(c.Request.Context(), name, form.Values)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "values": vals})
}

func (h *Handler) Search(c *gin.Context) {
	name := c.Param("name")
	if !Known(name) {
		c.Error(apperr.NotFound(nil).WithMessage("Unknown catalog"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	vals, err := h.service.Search(c.Request.Context(), name, c.Query("q"), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "values": vals})
}
