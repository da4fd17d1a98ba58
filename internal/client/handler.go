package client

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crm-backend/internal/apperr"
	"crm-backend/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func filterFromQuery(c *gin.Context) Filter {
	return Filter{
		Branch:          c.Query("branch"),
		Advisor:         c.Query("advisor"),
		Status:          c.Query("status"),
		SecondaryStatus: c.Query("secondary_status"),
		Source:          c.Query("source"),
		Query:           c.Query("q"),
	}
}

// List handles GET /clients.
func (h *Handler) List(c *gin.Context) {
	clients, err := h.service.List(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		c.Error(err)
		return
	}
	page, pageSize := utils.GetPaginationParams(c)
	pageItems, total := utils.Paginate(clients, page, pageSize)
	c.JSON(http.StatusOK, gin.H{
		"clients":  pageItems,
		"total":    total,
		"page":     page,
		"per_page": pageSize,
	})
}

// Get handles GET /clients/:id.
func (h *Handler) Get(c *gin.Context) {
	client, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// Create handles POST /clients.
func (h *Handler) Create(c *gin.Context) {
	var in Client
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(apperr.InvalidInput(err))
		return
	}
	created, err := h.service.Create(c.Request.Context(), in, actorName(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update handles PUT /clients/:id.
func (h *Handler) Update(c *gin.Context) {
	var in Client
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(apperr.InvalidInput(err))
		return
	}
	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), in, actorName(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type statusRequest struct {
	Status          string `json:"status" binding:"required"`
	SecondaryStatus string `json:"secondary_status"`
	Note            string `json:"note"`
}

// ChangeStatus handles POST /clients/:id/status.
func (h *Handler) ChangeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperr.InvalidInput(err))
		return
	}
	updated, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, req.SecondaryStatus, req.Note, actorName(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /clients/:id. ?purge_history=true also drops
// the client's ledger rows.
func (h *Handler) Delete(c *gin.Context) {
	purge, _ := strconv.ParseBool(c.DefaultQuery("purge_history", "false"))
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), purge, actorName(c)); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "client deleted"})
}

// Export handles GET /clients/export, a CSV of the filtered view.
func (h *Handler) Export(c *gin.Context) {
	clients, err := h.service.List(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		c.Error(err)
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(Columns)
	for _, cl := range clients {
		w.Write(cl.Row())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		c.Error(apperr.Internal(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="clients.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// Advisors handles GET /clients/advisors.
func (h *Handler) Advisors(c *gin.Context) {
	advisors, err := h.service.Advisors(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advisors": advisors})
}

// Import handles POST /clients/import. Multipart form: "file" is the
// CSV, "mode" the import mode, "mapping" an optional JSON object of
// target field to source column.
func (h *Handler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(apperr.InvalidInput(err).WithMessage("CSV file is required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.Error(apperr.InvalidInput(err))
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		c.Error(apperr.New(apperr.KindMalformedData, "Malformed CSV file", err))
		return
	}
	if len(records) == 0 {
		c.Error(apperr.InvalidInput(nil).WithMessage("CSV file is empty"))
		return
	}
	header, rows := records[0], records[1:]

	mapping := map[string]string{}
	if raw := c.PostForm("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			c.Error(apperr.InvalidInput(err).WithMessage("Invalid column mapping"))
			return
		}
	}
	mode := ImportMode(c.DefaultPostForm("mode", string(ImportAddOnly)))

	res, err := h.service.Import(c.Request.Context(), header, rows, mapping, mode, actorName(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func actorName(c *gin.Context) string {
	if v, ok := c.Get("username"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
