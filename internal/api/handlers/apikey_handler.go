package handlers

import (
	"net/http"

	"github.com/aurora-ops/aurora-backend/internal/api/middleware"
	"github.com/aurora-ops/aurora-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// API Key Handler
// ============================================

type APIKeyHandler struct {
	apiKeyService service.APIKeyService
}

type apiKeyCreateRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *APIKeyHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	keys, err := h.apiKeyService.List(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		response[i] = toAPIKeyResponse(k)
	}
	c.JSON(http.StatusOK, response)
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req apiKeyCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, secret, err := h.apiKeyService.Create(c.Request.Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	// The full secret is returned once and never again.
	c.JSON(http.StatusCreated, gin.H{
		"key":    toAPIKeyResponse(key),
		"secret": secret,
	})
}

func (h *APIKeyHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.apiKeyService.Revoke(c.Request.Context(), userID, c.Param("id"), c.Param("keyId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
