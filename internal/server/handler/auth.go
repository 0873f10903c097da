package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaultline/vaultline/internal/accounts"
	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/ledger"
	"go.uber.org/zap"
)

// accountSvc is the interface expected by AuthHandler, satisfied by *accounts.Service.
type accountSvc interface {
	Signup(ctx context.Context, email, password, displayName string) (*accounts.Account, error)
	Login(ctx context.Context, email, password string) (*accounts.Account, error)
}

// AuthHandler handles account authentication routes. On successful login it
// mints a session token; the rest of the API trusts only that token.
type AuthHandler struct {
	accounts       accountSvc
	tokens         *identity.TokenIssuer
	ledger         ledger.Ledger
	openingBalance int64
	logger         *zap.Logger
}

// NewAuthHandler creates an AuthHandler. openingBalance is the minor-unit
// balance credited to newly opened ledger accounts.
func NewAuthHandler(svc accountSvc, tokens *identity.TokenIssuer, l ledger.Ledger, openingBalance int64, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:       svc,
		tokens:         tokens,
		ledger:         l,
		openingBalance: openingBalance,
		logger:         logger,
	}
}

// Register mounts the auth routes on the provided router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
	}
}

type signupRequest struct {
	Email       string `json:"email"        binding:"required,email"`
	Password    string `json:"password"     binding:"required"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /auth/signup — creates an account, opens its ledger
// account, and returns a session token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	a, err := h.accounts.Signup(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if _, err := h.ledger.OpenAccount(c.Request.Context(), a.SubjectID(), h.openingBalance); err != nil {
		h.logger.Error("open ledger account", zap.String("account_id", a.SubjectID()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "account setup failed"})
		return
	}

	tok, err := h.tokens.Issue(a.SubjectID(), a.DisplayName)
	if err != nil {
		h.logger.Error("issue session token after signup", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issuance failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": a, "token": tok})
}

// Login handles POST /auth/login — authenticates with email/password and
// returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	a, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
			return
		}
		h.logger.Error("login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}

	tok, err := h.tokens.Issue(a.SubjectID(), a.DisplayName)
	if err != nil {
		h.logger.Error("issue session token after login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": a, "token": tok})
}
