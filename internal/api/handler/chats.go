package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RequireAuth is the middleware guarding the admin API routes.
func (h *Handler) RequireAuth(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}
	if _, err := h.validateAndGetSessionID(authHeader[7:]); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}
	c.Next()
}

// ListChats returns every chat the bot has seen activity in.
func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.Storage.TrackedChats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read chat registry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChatSettings returns the moderation configuration for one chat.
func (h *Handler) GetChatSettings(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat id"})
		return
	}
	cfg, err := h.Settings.Settings(chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}
