package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"heard-backend/internal/common/apperrors"
	"heard-backend/internal/common/middleware"
	"heard-backend/internal/features/profile/models"
	"heard-backend/internal/features/profile/repository"
	"heard-backend/internal/features/session"
)

// AuthGateway is the slice of the auth service the handler needs.
type AuthGateway interface {
	SignOutToken(ctx context.Context, accessToken string) error
}

type SessionHandler struct {
	profiles *session.ProfileService
	auth     AuthGateway
}

func NewSessionHandler(profiles *session.ProfileService, auth AuthGateway) *SessionHandler {
	return &SessionHandler{profiles: profiles, auth: auth}
}

func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	sessions := router.Group("/session")
	{
		sessions.GET("/me", h.getMe)
		sessions.GET("/onboarding", h.getOnboardingStatus)
		sessions.PATCH("/profile", h.updateProfile)
		sessions.POST("/stars", h.updateStars)
		sessions.POST("/signout", h.signOut)
	}
}

type meResponse struct {
	Profile            *models.ProfileResponse `json:"profile"`
	OnboardingComplete *bool                   `json:"onboarding_complete"`
}

// getMe resolves the caller's profile, creating it on first
// authenticated access.
func (h *SessionHandler) getMe(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	p, err := h.profiles.Resolve(c.Request.Context(), principal)
	if err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "profile resolution failed"))
		return
	}

	completed := p.OnboardingCompleted
	c.JSON(http.StatusOK, meResponse{
		Profile:            p.ToResponse(),
		OnboardingComplete: &completed,
	})
}

func (h *SessionHandler) getOnboardingStatus(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	completed, err := h.profiles.OnboardingStatus(c.Request.Context(), principal.UserID)
	if err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "onboarding check failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}

type updateProfileRequest struct {
	Username                *string                         `json:"username"`
	AvatarURL               *string                         `json:"avatar_url"`
	OnboardingStep          *string                         `json:"onboarding_step"`
	OnboardingCompleted     *bool                           `json:"onboarding_completed"`
	NotificationPreferences *models.NotificationPreferences `json:"notification_preferences"`
}

func (h *SessionHandler) updateProfile(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	p, err := h.profiles.Update(c.Request.Context(), principal.UserID, models.Patch{
		Username:                req.Username,
		AvatarURL:               req.AvatarURL,
		OnboardingStep:          req.OnboardingStep,
		OnboardingCompleted:     req.OnboardingCompleted,
		NotificationPreferences: req.NotificationPreferences,
	})
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.ToResponse())
}

type updateStarsRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// updateStars applies a star delta on the caller's current count. The
// profile must already exist; stars are never a reason to bootstrap.
func (h *SessionHandler) updateStars(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateStarsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("delta", err.Error()))
		return
	}

	current, err := h.profiles.Get(c.Request.Context(), principal.UserID)
	if err != nil {
		// Only a confirmed missing row is the caller's problem; an
		// unreachable backend is ours.
		if errors.Is(err, repository.ErrNotFound) {
			middleware.SendError(c, apperrors.NewPreconditionError("no profile loaded"))
			return
		}
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "profile read failed"))
		return
	}

	p, err := h.profiles.AddStars(c.Request.Context(), current, req.Delta)
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.ToResponse())
}

func (h *SessionHandler) signOut(c *gin.Context) {
	token := middleware.AccessToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.auth.SignOutToken(c.Request.Context(), token); err != nil {
		middleware.SendError(c, apperrors.NewAuthError("sign out", err))
		return
	}
	c.Status(http.StatusNoContent)
}
