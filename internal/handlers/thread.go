package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meetup-chat-service/internal/repositories"
	"meetup-chat-service/internal/service"
	"meetup-chat-service/internal/telemetry"
)

// ThreadHandler exposes the thread-lifecycle endpoints used by the meetup
// management layer.
type ThreadHandler struct {
	svc   service.ChatService
	audit *telemetry.AuditEmitter
}

// NewThreadHandler builds a ThreadHandler.
func NewThreadHandler(svc service.ChatService, audit *telemetry.AuditEmitter) *ThreadHandler {
	return &ThreadHandler{svc: svc, audit: audit}
}

// CreateThread binds a chat thread to a meetup. The caller is always part of
// the initial participant set. Duplicate creation returns 409 together with
// the existing thread id so idempotent callers can recover in one round trip.
func (h *ThreadHandler) CreateThread(c *gin.Context) {
	var req struct {
		MeetupID       string  `json:"meetup_id" binding:"required"`
		Name           string  `json:"name" binding:"required"`
		ParticipantIDs []int64 `json:"participant_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	participantIDs := append(req.ParticipantIDs, userID)

	thread, err := h.svc.CreateThread(c.Request.Context(), req.MeetupID, req.Name, participantIDs)
	if err != nil {
		if errors.Is(err, repositories.ErrThreadExists) {
			existing, lookupErr := h.svc.ThreadForMeetup(c.Request.Context(), req.MeetupID)
			if lookupErr != nil {
				c.JSON(http.StatusConflict, gin.H{"error": "thread already exists"})
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": "thread already exists", "thread_id": existing.ID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create thread"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "thread created", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, thread)
}

// GetThreadForMeetup resolves a meetup's thread.
func (h *ThreadHandler) GetThreadForMeetup(c *gin.Context) {
	thread, err := h.svc.ThreadForMeetup(c.Request.Context(), c.Param("meetup_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load thread"})
		return
	}
	c.JSON(http.StatusOK, thread)
}

// DeleteThreadForMeetup cascades a meetup deletion into the chat model.
func (h *ThreadHandler) DeleteThreadForMeetup(c *gin.Context) {
	err := h.svc.DeleteThreadForMeetup(c.Request.Context(), c.Param("meetup_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete thread"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "thread deleted", requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// AddParticipant joins a user to a thread, typically when a meetup invite is
// accepted. Idempotent; historical messages gain no receipts for the joiner.
func (h *ThreadHandler) AddParticipant(c *gin.Context) {
	threadID, err := strconv.ParseInt(c.Param("thread_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.AddParticipant(c.Request.Context(), threadID, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add participant"})
		return
	}

	c.Status(http.StatusNoContent)
}
