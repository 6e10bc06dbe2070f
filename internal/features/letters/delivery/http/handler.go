package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"heard-backend/internal/common/apperrors"
	"heard-backend/internal/common/middleware"
	"heard-backend/internal/features/letters/models"
	"heard-backend/internal/features/letters/service"
)

type LetterHandler struct {
	service service.LetterService
}

func NewLetterHandler(service service.LetterService) *LetterHandler {
	return &LetterHandler{service: service}
}

// RegisterRoutes wires the read endpoints on the public group and
// letter creation on the authenticated one.
func (h *LetterHandler) RegisterRoutes(public, authed *gin.RouterGroup) {
	letters := public.Group("/letters")
	{
		letters.GET("", h.listLetters)
		letters.GET("/:id", h.getLetter)
	}
	authed.POST("/letters", h.createLetter)

	public.GET("/categories", h.listCategories)
}

func (h *LetterHandler) listLetters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	letters, err := h.service.List(c.Request.Context(), models.ListFilter{
		CategoryID: c.Query("category_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, letters)
}

func (h *LetterHandler) getLetter(c *gin.Context) {
	letter, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, letter)
}

func (h *LetterHandler) createLetter(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	letter, err := h.service.Create(c.Request.Context(), principal.UserID, req)
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, letter)
}

func (h *LetterHandler) listCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}
