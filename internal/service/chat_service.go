package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"meetup-chat-service/internal/logger"
	"meetup-chat-service/internal/models"
	"meetup-chat-service/internal/observability"
	"meetup-chat-service/internal/repositories"
)

// ErrForbidden marks a caller that is not a participant of the thread it is
// trying to read or write. Never retried.
var ErrForbidden = errors.New("not a thread participant")

// ChatService is the façade the transport layer talks to. It composes the
// thread registry, the message log and the receipt tracker under the
// consistency rules of the chat model.
type ChatService interface {
	CreateThread(ctx context.Context, meetupID string, name string, participantIDs []int64) (models.Thread, error)
	ThreadForMeetup(ctx context.Context, meetupID string) (models.Thread, error)
	DeleteThreadForMeetup(ctx context.Context, meetupID string) error
	AddParticipant(ctx context.Context, threadID int64, userID int64) error
	SendMessage(ctx context.Context, threadID int64, senderID int64, content string) (models.Message, error)
	FetchPage(ctx context.Context, threadID int64, viewerID int64, limit int, before int64) ([]models.MessageWithStatus, bool, error)
	ListChatsForUser(ctx context.Context, userID int64) ([]models.ThreadSummary, error)
	AcknowledgeDelivered(ctx context.Context, messageID int64, userID int64) (models.DeliveryStatus, error)
	AcknowledgeRead(ctx context.Context, messageID int64, userID int64) (models.DeliveryStatus, error)
	BackfillReceipts(ctx context.Context) (int64, error)
}

// Service is the repository-backed ChatService.
type Service struct {
	threadRepo  repositories.ThreadRepository
	messageRepo repositories.MessageRepository
	statusRepo  repositories.StatusRepository
}

// NewService constructs the façade.
func NewService(threadRepo repositories.ThreadRepository, messageRepo repositories.MessageRepository, statusRepo repositories.StatusRepository) *Service {
	return &Service{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		statusRepo:  statusRepo,
	}
}

// CreateThread binds a new chat thread to a meetup with its initial members.
func (s *Service) CreateThread(ctx context.Context, meetupID string, name string, participantIDs []int64) (models.Thread, error) {
	thread, err := s.threadRepo.CreateThread(ctx, meetupID, name, participantIDs)
	if err != nil {
		return models.Thread{}, err
	}
	logger.Log.Info("thread created",
		zap.Int64("thread_id", thread.ID),
		zap.String("meetup_id", meetupID),
		zap.Int("participants", len(participantIDs)))
	return thread, nil
}

// ThreadForMeetup resolves the thread bound to a meetup.
func (s *Service) ThreadForMeetup(ctx context.Context, meetupID string) (models.Thread, error) {
	return s.threadRepo.GetThreadForMeetup(ctx, meetupID)
}

// DeleteThreadForMeetup cascades a meetup deletion into the chat model.
func (s *Service) DeleteThreadForMeetup(ctx context.Context, meetupID string) error {
	return s.threadRepo.DeleteThreadForMeetup(ctx, meetupID)
}

// AddParticipant joins a user to a thread. Idempotent; past messages do not
// grow receipts for the new member.
func (s *Service) AddParticipant(ctx context.Context, threadID int64, userID int64) error {
	return s.threadRepo.AddParticipant(ctx, threadID, userID)
}

// SendMessage appends a message and fans out its receipts atomically. The
// sender must be a current participant; the receipt set is frozen to the
// participant snapshot taken inside the append transaction.
func (s *Service) SendMessage(ctx context.Context, threadID int64, senderID int64, content string) (models.Message, error) {
	if _, err := s.threadRepo.GetThread(ctx, threadID); err != nil {
		return models.Message{}, err
	}

	msg, err := s.messageRepo.Append(ctx, threadID, senderID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrSenderNotParticipant) {
			return models.Message{}, ErrForbidden
		}
		return models.Message{}, err
	}

	observability.IncMessageSent()
	_ = observability.PublishEvent(ctx, "chat.message.sent", observability.EventEnvelope{
		EventType: "chat_events",
		EventName: "message_sent",
		Payload: map[string]interface{}{
			"message_id": msg.ID,
			"thread_id":  msg.ThreadID,
			"sender_id":  msg.SenderID,
			"sent_at":    msg.CreatedAt,
		},
	}, nil)
	return msg, nil
}

// FetchPage returns a newest-first page of messages joined with the viewer's
// own receipts. Other recipients' receipts are never included; senders see
// only their own synthetic delivered/read row.
func (s *Service) FetchPage(ctx context.Context, threadID int64, viewerID int64, limit int, before int64) ([]models.MessageWithStatus, bool, error) {
	if _, err := s.threadRepo.GetThread(ctx, threadID); err != nil {
		return nil, false, err
	}
	member, err := s.threadRepo.IsParticipant(ctx, threadID, viewerID)
	if err != nil {
		return nil, false, err
	}
	if !member {
		return nil, false, ErrForbidden
	}

	msgs, hasMore, err := s.messageRepo.Page(ctx, threadID, limit, before)
	if err != nil {
		return nil, false, err
	}

	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	statuses, err := s.statusRepo.StatusesForMessages(ctx, viewerID, ids)
	if err != nil {
		return nil, false, err
	}

	page := make([]models.MessageWithStatus, 0, len(msgs))
	for _, m := range msgs {
		item := models.MessageWithStatus{Message: m}
		var status *models.DeliveryStatus
		if st, ok := statuses[m.ID]; ok {
			status = &st
			item.DeliveredAt = st.DeliveredAt
			item.ReadAt = st.ReadAt
		}
		item.NeedsDeliveryUpdate = models.NeedsDeliveryUpdate(m, viewerID, status)
		page = append(page, item)
	}
	return page, hasMore, nil
}

// ListChatsForUser returns the user's threads, most recently active first.
func (s *Service) ListChatsForUser(ctx context.Context, userID int64) ([]models.ThreadSummary, error) {
	return s.threadRepo.ListThreadsForUser(ctx, userID)
}

// AcknowledgeDelivered records delivery of a message to the caller.
func (s *Service) AcknowledgeDelivered(ctx context.Context, messageID int64, userID int64) (models.DeliveryStatus, error) {
	return s.advance(ctx, messageID, userID, models.StateDelivered)
}

// AcknowledgeRead records that the caller has read a message. Delivery is
// backfilled when it was never acknowledged separately.
func (s *Service) AcknowledgeRead(ctx context.Context, messageID int64, userID int64) (models.DeliveryStatus, error) {
	return s.advance(ctx, messageID, userID, models.StateRead)
}

func (s *Service) advance(ctx context.Context, messageID int64, userID int64, state models.DeliveryState) (models.DeliveryStatus, error) {
	status, err := s.statusRepo.Advance(ctx, messageID, userID, state, time.Now().UTC())
	if err != nil {
		// a missing receipt row means either the message does not exist or
		// the caller was not a participant when it was sent
		if errors.Is(err, repositories.ErrStatusNotFound) {
			if _, msgErr := s.messageRepo.GetMessage(ctx, messageID); msgErr != nil {
				return models.DeliveryStatus{}, msgErr
			}
		}
		return models.DeliveryStatus{}, err
	}
	observability.IncReceiptAdvanced(string(state))
	return status, nil
}

// BackfillReceipts repairs missing receipt rows for send-time participants.
// Maintenance only; never invoked on the request path.
func (s *Service) BackfillReceipts(ctx context.Context) (int64, error) {
	created, err := s.statusRepo.BackfillMissing(ctx)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		logger.Log.Info("backfilled missing receipts", zap.Int64("created", created))
	}
	return created, nil
}

var _ ChatService = (*Service)(nil)
