package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/followthefloww9/gold-digger/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleAuthStatus reports whether operator auth is required. It
// always responds, regardless of whether the caller is authenticated.
func (s *Server) handleAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"auth_enabled": s.authCfg.Enabled})
}

// handleLogin is the single-operator login: one username/password pair
// configured at deploy time, not a multi-user account system.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	pm := auth.NewPasswordManager(auth.DefaultBcryptCost, s.authCfg.MinPasswordLength)
	if req.Username != s.authCfg.OperatorUsername || !pm.VerifyPassword(req.Password, s.authCfg.OperatorPasswordHash) {
		errorResponse(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := s.jwtManager.GenerateTokenPair(auth.UserClaims{UserID: "operator", IsAdmin: true})
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	successResponse(c, pair)
}

// authMiddleware requires a valid Bearer token on every control-plane
// route.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			errorResponse(c, http.StatusUnauthorized, "missing or malformed authorization header")
			c.Abort()
			return
		}
		if _, err := s.jwtManager.ValidateAccessToken(parts[1]); err != nil {
			errorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}
		c.Next()
	}
}
