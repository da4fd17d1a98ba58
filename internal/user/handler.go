package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-backend/auth"
	"crm-backend/internal/apperr"
	"crm-backend/redis"
)

// Handler handles HTTP requests for accounts and sessions.
type Handler struct {
	service  Service
	tokens   *auth.Tokens
	denylist *redis.TokenDenylist
}

func NewHandler(service Service, tokens *auth.Tokens, denylist *redis.TokenDenylist) *Handler {
	return &Handler{service: service, tokens: tokens, denylist: denylist}
}

type FormLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type FormCreate struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

// Login handles POST /login.
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apperr.InvalidInput(err))
		return
	}

	u, err := h.service.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		c.Error(err)
		return
	}

	token, _, err := h.tokens.Generate(u.Username, u.Role)
	if err != nil {
		c.Error(apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         u.Safe(),
	})
}

// Logout handles DELETE /logout, revoking the current token id.
func (h *Handler) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	if jti != "" && h.denylist != nil {
		if err := h.denylist.Revoke(c.Request.Context(), jti, h.tokens.TTL()); err != nil {
			c.Error(apperr.Internal(err))
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// GetProfile handles GET /profile.
func (h *Handler) GetProfile(c *gin.Context) {
	username := c.GetString("username")
	u, err := h.service.Get(c.Request.Context(), username)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, u.Safe())
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Create handles POST /users.
func (h *Handler) Create(c *gin.Context) {
	var form FormCreate
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apperr.InvalidInput(err))
		return
	}
	created, err := h.service.Add(c.Request.Context(), form.Username, form.Password, form.Role)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": created})
}

// Delete handles DELETE /users/:username. Deleting the current account
// is rejected.
func (h *Handler) Delete(c *gin.Context) {
	target := c.Param("username")
	if target == c.GetString("username") {
		c.Error(apperr.InvalidInput(nil).WithMessage("Cannot delete the current user"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), target); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
