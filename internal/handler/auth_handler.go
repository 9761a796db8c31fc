package handler

import (
	"net/http"
	"strings"

	"feedesk/config"
	"feedesk/internal/auth"
	"feedesk/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
	jwt *config.JWTConfig
}

func NewAuthHandler(svc *service.AuthService, jwt *config.JWTConfig) *AuthHandler {
	return &AuthHandler{svc: svc, jwt: jwt}
}

type SignupRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Class        string `json:"class" binding:"required"`
	Board        string `json:"board" binding:"required"`
	Password     string `json:"password" binding:"required"`
	ReferralCode string `json:"referral_code"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /api/auth/signup. The account waits for admin approval.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.svc.Signup(service.SignupInput{
		Name:         req.Name,
		Email:        req.Email,
		Class:        req.Class,
		Board:        req.Board,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "signup successful, waiting for admin approval",
		"student": st,
	})
}

// Login handles POST /api/auth/login for both students and the admin.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"role":         id.Role,
		"email":        id.Email,
	})
}

// Status reports the role behind the bearer token, or null without a valid one.
func (h *AuthHandler) Status(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		c.JSON(http.StatusOK, gin.H{"role": nil})
		return
	}
	claims, err := auth.ParseAccessToken(h.jwt, token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"role": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": claims.Role, "email": claims.Email})
}

// Logout is an acknowledgement; tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
