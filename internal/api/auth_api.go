package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Riya-023/collaborative-todo-board/internal/repository"
	"github.com/Riya-023/collaborative-todo-board/pkg/auth"
	"github.com/Riya-023/collaborative-todo-board/pkg/models"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  *models.UserRef `json:"user"`
}

// handleRegister creates a new user account and issues a token
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username, email and password are required"})
		return
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "registration failed"})
		return
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}

	if err := s.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"message": "username or email already taken"})
			return
		}
		s.logger.Error("Failed to create user", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "registration failed"})
		return
	}

	token, err := s.auth.GenerateToken(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		s.logger.Error("Failed to generate token", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "registration failed"})
		return
	}

	s.metrics.IncrementCounter("auth_registrations_total", 1)
	ref := user.Ref()
	c.JSON(http.StatusCreated, authResponse{Token: token, User: &ref})
}

// handleLogin verifies credentials and issues a token. A missing user and a
// wrong password produce the same response.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	user, err := s.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
			return
		}
		s.logger.Error("Failed to load user", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}

	if err := s.auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	token, err := s.auth.GenerateToken(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		s.logger.Error("Failed to generate token", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}

	s.metrics.IncrementCounter("auth_logins_total", 1)
	ref := user.Ref()
	c.JSON(http.StatusOK, authResponse{Token: token, User: &ref})
}

// handleListUsers returns all registered users
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list users", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list users"})
		return
	}

	refs := make([]*models.UserRef, 0, len(users))
	for _, u := range users {
		ref := u.Ref()
		refs = append(refs, &ref)
	}
	c.JSON(http.StatusOK, gin.H{"users": refs})
}
