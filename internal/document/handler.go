package document

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-backend/internal/apperr"
)

// RefResolver maps a client id to a document reference. The client
// registry provides it so folder names follow the client's name.
type RefResolver func(c *gin.Context, clientID string) (Ref, error)

type Handler struct {
	service *Service
	resolve RefResolver
}

func NewHandler(service *Service, resolve RefResolver) *Handler {
	return &Handler{service: service, resolve: resolve}
}

func (h *Handler) ref(c *gin.Context) (Ref, bool) {
	ref, err := h.resolve(c, c.Param("id"))
	if err != nil {
		c.Error(err)
		return Ref{}, false
	}
	return ref, true
}

// List handles GET /clients/:id/documents.
func (h *Handler) List(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	docs, err := h.service.List(c.Request.Context(), ref)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// Upload handles POST /clients/:id/documents. Multipart form with a
// "category" field and one or more "files" parts.
func (h *Handler) Upload(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.Error(apperr.InvalidInput(err).WithMessage("Invalid multipart form"))
		return
	}
	category := c.PostForm("category")
	parts := form.File["files"]
	uploads := make([]Upload, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			c.Error(apperr.InvalidInput(err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.Error(apperr.InvalidInput(err))
			return
		}
		uploads = append(uploads, Upload{
			Filename:    part.Filename,
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	results, err := h.service.Upload(c.Request.Context(), ref, category, actorName(c), uploads)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"results": results})
}

// Download handles GET /clients/:id/documents/:name.
func (h *Handler) Download(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	name := c.Param("name")
	rc, err := h.service.Download(c.Request.Context(), ref, name, actorName(c))
	if err != nil {
		c.Error(err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, rc)
}

// Delete handles DELETE /clients/:id/documents/:name.
func (h *Handler) Delete(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), ref, c.Param("name")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

// Archive handles GET /clients/:id/documents/archive.
func (h *Handler) Archive(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	data, err := h.service.Archive(c.Request.Context(), ref)
	if err != nil {
		c.Error(err)
		return
	}
	name := SafeFileName(ref.ID + "_" + ref.Name)
	c.Header("Content-Disposition", `attachment; filename="`+name+`.zip"`)
	c.Data(http.StatusOK, "application/zip", data)
}

func actorName(c *gin.Context) string {
	if v, ok := c.Get("username"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
