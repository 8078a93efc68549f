package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meetup-chat-service/internal/mocks"
	"meetup-chat-service/internal/models"
	"meetup-chat-service/internal/repositories"
	"meetup-chat-service/internal/service"
	"meetup-chat-service/internal/ws"
)

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.GET("/threads/:thread_id/messages", handler.GetThreadMessages)
	r.POST("/threads/:thread_id/messages", handler.PostThreadMessage)
	r.POST("/messages/:message_id/delivered", handler.AckDelivered)
	r.POST("/messages/:message_id/read", handler.AckRead)
	return r
}

func TestListChatsSuccess(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("ListChatsForUser", mock.Anything, int64(1)).
		Return([]models.ThreadSummary{{ThreadID: 3, MeetupID: "m-1", Name: "kickoff"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["chats"], 1)

	svc.AssertExpectations(t)
}

func TestListChatsServiceError(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("ListChatsForUser", mock.Anything, int64(1)).
		Return(([]models.ThreadSummary)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetThreadMessagesSuccess(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	page := []models.MessageWithStatus{
		{
			Message:             models.Message{ID: 9, ThreadID: 5, SenderID: 2, Content: "hi"},
			NeedsDeliveryUpdate: true,
		},
	}
	svc.On("FetchPage", mock.Anything, int64(5), int64(1), 0, int64(0)).
		Return(page, false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []struct {
			ID                  int64 `json:"id"`
			NeedsDeliveryUpdate bool  `json:"needs_delivery_update"`
		} `json:"messages"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.True(t, resp.Messages[0].NeedsDeliveryUpdate)
	assert.False(t, resp.HasMore)

	svc.AssertExpectations(t)
}

func TestGetThreadMessagesWithCursor(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("FetchPage", mock.Anything, int64(5), int64(1), 10, int64(42)).
		Return([]models.MessageWithStatus{}, true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5/messages?limit=10&before=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetThreadMessagesInvalidID(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatServiceMock), ws.NewHub())
	router := setupChatRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/threads/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetThreadMessagesForbidden(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("FetchPage", mock.Anything, int64(5), int64(1), 0, int64(0)).
		Return(([]models.MessageWithStatus)(nil), false, service.ErrForbidden).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}

func TestPostThreadMessageSuccess(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	hub := ws.NewHub()
	handler := NewChatHandler(svc, hub)
	router := setupChatRouter(handler)

	svc.On("SendMessage", mock.Anything, int64(5), int64(1), "hi").
		Return(models.Message{ID: 7, ThreadID: 5, SenderID: 1, Content: "hi"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
	assert.NotNil(t, hub)
}

func TestPostThreadMessageEmptyContent(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("SendMessage", mock.Anything, int64(5), int64(1), "   ").
		Return(models.Message{}, repositories.ErrEmptyContent).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages", bytes.NewBufferString(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestPostThreadMessageForbidden(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("SendMessage", mock.Anything, int64(5), int64(1), "hi").
		Return(models.Message{}, service.ErrForbidden).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}

func TestPostThreadMessageInvalidID(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatServiceMock), ws.NewHub())
	router := setupChatRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/threads/bad/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAckDeliveredSuccess(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	now := time.Now()
	svc.On("AcknowledgeDelivered", mock.Anything, int64(7), int64(1)).
		Return(models.DeliveryStatus{MessageID: 7, UserID: 1, DeliveredAt: &now}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/7/delivered", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status models.DeliveryStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.NotNil(t, status.DeliveredAt)
	assert.Nil(t, status.ReadAt)

	svc.AssertExpectations(t)
}

func TestAckReadNotFound(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("AcknowledgeRead", mock.Anything, int64(7), int64(1)).
		Return(models.DeliveryStatus{}, repositories.ErrStatusNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/7/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestAckReadUnknownMessage(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("AcknowledgeRead", mock.Anything, int64(7), int64(1)).
		Return(models.DeliveryStatus{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/7/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestAckReadConflict(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	handler := NewChatHandler(svc, ws.NewHub())
	router := setupChatRouter(handler)

	svc.On("AcknowledgeRead", mock.Anything, int64(7), int64(1)).
		Return(models.DeliveryStatus{}, repositories.ErrStatusConflict).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/7/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	svc.AssertExpectations(t)
}
