package tournament

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func status(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyInTournament):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// POST /tournament  body: {mode, botCount, humanChair, contractAddress}
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Address = c.GetString("address") // JWT middleware 注入

	t, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GET /tournament/:id
func (h *Handler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

// DELETE /tournament/:id
func (h *Handler) Finish(c *gin.Context) {
	if err := h.svc.Finish(c.Request.Context(), c.Param("id"), c.GetString("address")); err != nil {
		c.JSON(status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Register 挂到已带 JWT 中间件的路由组
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/tournament", h.Create)
	r.GET("/tournament/:id", h.Get)
	r.DELETE("/tournament/:id", h.Finish)
}
