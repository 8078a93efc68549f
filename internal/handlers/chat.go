package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meetup-chat-service/internal/repositories"
	"meetup-chat-service/internal/service"
	"meetup-chat-service/internal/ws"
)

// ChatHandler exposes the messaging endpoints.
type ChatHandler struct {
	svc service.ChatService
	hub *ws.Hub
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc service.ChatService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{svc: svc, hub: hub}
}

// ListChats returns the threads the authenticated user belongs to, most
// recently active first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt64("userID")

	chats, err := h.svc.ListChatsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetThreadMessages returns one page of a thread, newest first, joined with
// the caller's own receipts.
func (h *ChatHandler) GetThreadMessages(c *gin.Context) {
	threadID, err := strconv.ParseInt(c.Param("thread_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	var before int64
	if raw := c.Query("before"); raw != "" {
		before, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || before < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
	}

	userID := c.GetInt64("userID")
	page, hasMore, err := h.svc.FetchPage(c.Request.Context(), threadID, userID, limit, before)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrThreadNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a thread member"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": page, "has_more": hasMore})
}

// PostThreadMessage appends a message and broadcasts it to the thread room.
func (h *ChatHandler) PostThreadMessage(c *gin.Context) {
	threadID, err := strconv.ParseInt(c.Param("thread_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	msg, err := h.svc.SendMessage(c.Request.Context(), threadID, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrThreadNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a thread member"})
		case errors.Is(err, repositories.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message content is empty"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	h.hub.BroadcastMessage(threadID, msg)
	c.JSON(http.StatusCreated, msg)
}

// AckDelivered records delivery of a message to the caller. Clients call it
// for every page item flagged needs_delivery_update.
func (h *ChatHandler) AckDelivered(c *gin.Context) {
	h.acknowledge(c, false)
}

// AckRead records that the caller has read a message.
func (h *ChatHandler) AckRead(c *gin.Context) {
	h.acknowledge(c, true)
}

func (h *ChatHandler) acknowledge(c *gin.Context, read bool) {
	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt64("userID")
	var status interface{}
	if read {
		status, err = h.svc.AcknowledgeRead(c.Request.Context(), messageID, userID)
	} else {
		status, err = h.svc.AcknowledgeDelivered(c.Request.Context(), messageID, userID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, repositories.ErrStatusNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message status not found"})
		case errors.Is(err, repositories.ErrStatusConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "receipt update conflict"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, status)
}
