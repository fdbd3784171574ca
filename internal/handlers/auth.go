package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		log:         log.With("handler", "AuthHandler"),
		authService: authService,
	}
}

type signupRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	TenantName   string `json:"tenant_name" binding:"required"`
	TenantDomain string `json:"tenant_domain" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, tenant, err := h.authService.Signup(c.Request.Context(), services.SignupRequest{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		TenantName:   req.TenantName,
		TenantDomain: req.TenantDomain,
	})
	if err != nil {
		h.log.Warn("Signup failed", "email", "[redacted]", "error", err)
		RespondError(c, http.StatusBadRequest, "signup_failed", err)
		return
	}
	RespondCreated(c, gin.H{"user": user, "tenant": tenant})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "login_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"access_token": token,
		"expires_in":   int(h.authService.GetAccessTTL().Seconds()),
		"user":         user,
	})
}

// Refresh swaps a still-valid access token for a fresh one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	token, err := h.authService.Refresh(c.Request.Context(), rd.TokenString)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "refresh_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"access_token": token,
		"expires_in":   int(h.authService.GetAccessTTL().Seconds()),
	})
}
