package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"meetup-chat-service/internal/models"
	"meetup-chat-service/internal/repositories"
	"meetup-chat-service/internal/service"
)

type ThreadRepositoryMock struct {
	mock.Mock
}

func (m *ThreadRepositoryMock) CreateThread(ctx context.Context, meetupID string, name string, participantIDs []int64) (models.Thread, error) {
	args := m.Called(ctx, meetupID, name, participantIDs)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) GetThread(ctx context.Context, threadID int64) (models.Thread, error) {
	args := m.Called(ctx, threadID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) GetThreadForMeetup(ctx context.Context, meetupID string) (models.Thread, error) {
	args := m.Called(ctx, meetupID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) AddParticipant(ctx context.Context, threadID int64, userID int64) error {
	args := m.Called(ctx, threadID, userID)
	return args.Error(0)
}

func (m *ThreadRepositoryMock) IsParticipant(ctx context.Context, threadID int64, userID int64) (bool, error) {
	args := m.Called(ctx, threadID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ThreadRepositoryMock) Participants(ctx context.Context, threadID int64) ([]int64, error) {
	args := m.Called(ctx, threadID)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *ThreadRepositoryMock) TouchActivity(ctx context.Context, threadID int64, at time.Time) error {
	args := m.Called(ctx, threadID, at)
	return args.Error(0)
}

func (m *ThreadRepositoryMock) ListThreadsForUser(ctx context.Context, userID int64) ([]models.ThreadSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ThreadSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ThreadSummary)
	}
	return list, args.Error(1)
}

func (m *ThreadRepositoryMock) DeleteThreadForMeetup(ctx context.Context, meetupID string) error {
	args := m.Called(ctx, meetupID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, threadID int64, senderID int64, content string) (models.Message, error) {
	args := m.Called(ctx, threadID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Page(ctx context.Context, threadID int64, limit int, before int64) ([]models.Message, bool, error) {
	args := m.Called(ctx, threadID, limit, before)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type StatusRepositoryMock struct {
	mock.Mock
}

func (m *StatusRepositoryMock) Advance(ctx context.Context, messageID int64, userID int64, state models.DeliveryState, now time.Time) (models.DeliveryStatus, error) {
	args := m.Called(ctx, messageID, userID, state, now)
	var status models.DeliveryStatus
	if val := args.Get(0); val != nil {
		status = val.(models.DeliveryStatus)
	}
	return status, args.Error(1)
}

func (m *StatusRepositoryMock) StatusFor(ctx context.Context, messageID int64, userID int64) (*models.DeliveryStatus, error) {
	args := m.Called(ctx, messageID, userID)
	var status *models.DeliveryStatus
	if val := args.Get(0); val != nil {
		status = val.(*models.DeliveryStatus)
	}
	return status, args.Error(1)
}

func (m *StatusRepositoryMock) StatusesForMessages(ctx context.Context, viewerID int64, messageIDs []int64) (map[int64]models.DeliveryStatus, error) {
	args := m.Called(ctx, viewerID, messageIDs)
	var statuses map[int64]models.DeliveryStatus
	if val := args.Get(0); val != nil {
		statuses = val.(map[int64]models.DeliveryStatus)
	}
	return statuses, args.Error(1)
}

func (m *StatusRepositoryMock) BackfillMissing(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) CreateThread(ctx context.Context, meetupID string, name string, participantIDs []int64) (models.Thread, error) {
	args := m.Called(ctx, meetupID, name, participantIDs)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ChatServiceMock) ThreadForMeetup(ctx context.Context, meetupID string) (models.Thread, error) {
	args := m.Called(ctx, meetupID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ChatServiceMock) DeleteThreadForMeetup(ctx context.Context, meetupID string) error {
	args := m.Called(ctx, meetupID)
	return args.Error(0)
}

func (m *ChatServiceMock) AddParticipant(ctx context.Context, threadID int64, userID int64) error {
	args := m.Called(ctx, threadID, userID)
	return args.Error(0)
}

func (m *ChatServiceMock) SendMessage(ctx context.Context, threadID int64, senderID int64, content string) (models.Message, error) {
	args := m.Called(ctx, threadID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) FetchPage(ctx context.Context, threadID int64, viewerID int64, limit int, before int64) ([]models.MessageWithStatus, bool, error) {
	args := m.Called(ctx, threadID, viewerID, limit, before)
	var page []models.MessageWithStatus
	if val := args.Get(0); val != nil {
		page = val.([]models.MessageWithStatus)
	}
	return page, args.Bool(1), args.Error(2)
}

func (m *ChatServiceMock) ListChatsForUser(ctx context.Context, userID int64) ([]models.ThreadSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ThreadSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ThreadSummary)
	}
	return list, args.Error(1)
}

func (m *ChatServiceMock) AcknowledgeDelivered(ctx context.Context, messageID int64, userID int64) (models.DeliveryStatus, error) {
	args := m.Called(ctx, messageID, userID)
	var status models.DeliveryStatus
	if val := args.Get(0); val != nil {
		status = val.(models.DeliveryStatus)
	}
	return status, args.Error(1)
}

func (m *ChatServiceMock) AcknowledgeRead(ctx context.Context, messageID int64, userID int64) (models.DeliveryStatus, error) {
	args := m.Called(ctx, messageID, userID)
	var status models.DeliveryStatus
	if val := args.Get(0); val != nil {
		status = val.(models.DeliveryStatus)
	}
	return status, args.Error(1)
}

func (m *ChatServiceMock) BackfillReceipts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ repositories.ThreadRepository = (*ThreadRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.StatusRepository = (*StatusRepositoryMock)(nil)
var _ service.ChatService = (*ChatServiceMock)(nil)
