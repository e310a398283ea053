package services

import (
	goerrors "errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/epicshot/messaging/config"
	"github.com/epicshot/messaging/db"
	apiError "github.com/epicshot/messaging/errors"
	"github.com/epicshot/messaging/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageService interface
type MessageService interface {
	CanMessage(senderID, receiverID uuid.UUID) bool
	SendMessage(senderID uuid.UUID, req *models.SendMessageRequest) (*models.Message, error)
	EditMessage(requesterID, messageID uuid.UUID, content string) (*models.Message, error)
	ToggleReaction(requesterID, messageID uuid.UUID, emoji string) ([]models.Reaction, error)
	GetReactions(messageID uuid.UUID) ([]models.Reaction, error)
	MarkRead(readerID, conversationID uuid.UUID) (int64, error)
	DeleteMessage(requesterID, messageID uuid.UUID) error
	ListConversations(userID uuid.UUID) ([]models.ConversationSummary, error)
	GetMessages(userID, otherID uuid.UUID) ([]models.Message, error)
	UnreadTotal(userID uuid.UUID) (int64, error)
	MessagingPeers(userID uuid.UUID) ([]*models.UserResponse, error)
}

// messageService struct
type messageService struct {
	Config           *config.Config
	userRepo         db.UserRepository
	conversationRepo db.ConversationRepository
	messageRepo      db.MessageRepository
	notifier         Notifier
	pairLocks        *pairLocks
}

// NewMessageService creates a new instance of MessageService
func NewMessageService(userRepo db.UserRepository, conversationRepo db.ConversationRepository, messageRepo db.MessageRepository, notifier Notifier, conf *config.Config) MessageService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &messageService{
		Config:           conf,
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		notifier:         notifier,
		pairLocks:        newPairLocks(),
	}
}

// pairLocks serializes find-or-create and pointer recompute per
// participant pair. The database unique index remains the backstop.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *pairLocks) get(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	return l
}

// CanMessage reports whether the pair is allowed to exchange messages:
// at least one of the two must follow the other. Lookup failures read as
// "no" rather than an error; callers gate on the result explicitly.
func (s *messageService) CanMessage(senderID, receiverID uuid.UUID) bool {
	if _, err := s.userRepo.FindUserByID(senderID); err != nil {
		return false
	}
	if _, err := s.userRepo.FindUserByID(receiverID); err != nil {
		return false
	}

	connected, err := s.userRepo.IsConnected(senderID, receiverID)
	if err != nil {
		log.Printf("error checking follow relationship: %v", err)
		return false
	}
	return connected
}

func (s *messageService) SendMessage(senderID uuid.UUID, req *models.SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if req.ReceiverID == uuid.Nil || (content == "" && req.MediaURL == "") {
		return nil, apiError.New("receiver id and message content or media are required", http.StatusBadRequest)
	}
	if req.ReceiverID == senderID {
		return nil, apiError.New("cannot message yourself", http.StatusBadRequest)
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
		if req.MediaURL != "" {
			messageType = models.MessageTypeImage
		}
	}
	if !models.ValidMessageType(messageType) {
		return nil, apiError.New("invalid message type", http.StatusBadRequest)
	}

	if !s.CanMessage(senderID, req.ReceiverID) {
		return nil, apiError.New("you can only message users you follow or who follow you", http.StatusForbidden)
	}

	pairLock := s.pairLocks.get(models.PairKey(senderID, req.ReceiverID))
	pairLock.Lock()
	defer pairLock.Unlock()

	conv, err := s.conversationRepo.FindOrCreate(senderID, req.ReceiverID)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}

	if req.ReplyToID != nil {
		replyTo, err := s.messageRepo.FindByID(*req.ReplyToID)
		if err != nil {
			return nil, apiError.New("reply target not found", http.StatusNotFound)
		}
		if replyTo.ConversationID != conv.ID {
			return nil, apiError.New("reply target belongs to another conversation", http.StatusBadRequest)
		}
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     req.ReceiverID,
		Content:        content,
		MediaURL:       req.MediaURL,
		MessageType:    messageType,
		ReplyToID:      req.ReplyToID,
	}
	if err := s.messageRepo.CreateWithConversation(msg, conv); err != nil {
		return nil, apiError.ErrInternalServerError
	}

	populated, err := s.messageRepo.FindByID(msg.ID)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}

	updated, err := s.conversationRepo.FindByID(conv.ID)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}

	now := time.Now()
	s.notifier.NotifyUser(req.ReceiverID, models.EventNewMessage, map[string]interface{}{
		"conversation_id": updated.ID,
		"message":         populated,
		"unread_count":    updated.UnreadCount(),
		"timestamp":       now,
	})
	s.notifier.NotifyRoom(updated.ID, models.EventMessageAdded, map[string]interface{}{
		"conversation_id": updated.ID,
		"message":         populated,
		"timestamp":       now,
	})
	s.notifier.NotifyUser(senderID, models.EventConversationUpdated, updated.Summary(senderID))

	return populated, nil
}

func (s *messageService) EditMessage(requesterID, messageID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apiError.New("message content is required", http.StatusBadRequest)
	}

	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("message not found", http.StatusNotFound)
		}
		return nil, apiError.ErrInternalServerError
	}
	if msg.SenderID != requesterID {
		return nil, apiError.New("you can only edit your own messages", http.StatusForbidden)
	}

	now := time.Now()
	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &now
	if err := s.messageRepo.UpdateContent(msg); err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("message not found", http.StatusNotFound)
		}
		return nil, apiError.ErrInternalServerError
	}

	s.notifier.NotifyRoom(msg.ConversationID, models.EventMessageUpdated, map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"content":         msg.Content,
		"is_edited":       true,
		"edited_at":       msg.EditedAt,
		"timestamp":       now,
	})

	conv, err := s.conversationRepo.FindByID(msg.ConversationID)
	if err == nil && conv.LastMessageID != nil && *conv.LastMessageID == msg.ID {
		s.notifier.NotifyUser(conv.UserOneID, models.EventConversationUpdated, conv.Summary(conv.UserOneID))
		s.notifier.NotifyUser(conv.UserTwoID, models.EventConversationUpdated, conv.Summary(conv.UserTwoID))
	}

	return msg, nil
}

func (s *messageService) ToggleReaction(requesterID, messageID uuid.UUID, emoji string) ([]models.Reaction, error) {
	if strings.TrimSpace(emoji) == "" {
		return nil, apiError.New("emoji is required", http.StatusBadRequest)
	}

	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("message not found", http.StatusNotFound)
		}
		return nil, apiError.ErrInternalServerError
	}
	if msg.SenderID != requesterID && msg.ReceiverID != requesterID {
		return nil, apiError.New("only participants can react to a message", http.StatusForbidden)
	}

	reactions, err := s.messageRepo.ToggleReaction(messageID, requesterID, emoji)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}

	s.notifier.NotifyRoom(msg.ConversationID, models.EventMessageReaction, map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"reactions":       reactions,
		"user_id":         requesterID,
		"emoji":           emoji,
		"timestamp":       time.Now(),
	})

	return reactions, nil
}

func (s *messageService) GetReactions(messageID uuid.UUID) ([]models.Reaction, error) {
	if _, err := s.messageRepo.FindByID(messageID); err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("message not found", http.StatusNotFound)
		}
		return nil, apiError.ErrInternalServerError
	}
	reactions, err := s.messageRepo.ListReactions(messageID)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}
	return reactions, nil
}

func (s *messageService) MarkRead(readerID, conversationID uuid.UUID) (int64, error) {
	conv, err := s.conversationRepo.FindByID(conversationID)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apiError.New("conversation not found", http.StatusNotFound)
		}
		return 0, apiError.ErrInternalServerError
	}
	if !conv.HasParticipant(readerID) {
		return 0, apiError.New("only participants can mark a conversation read", http.StatusForbidden)
	}

	pairLock := s.pairLocks.get(models.PairKey(conv.UserOneID, conv.UserTwoID))
	pairLock.Lock()
	defer pairLock.Unlock()

	count, err := s.messageRepo.MarkConversationRead(conv, readerID)
	if err != nil {
		return 0, apiError.ErrInternalServerError
	}

	s.notifyRead(conv.ID, readerID, conv.OtherParticipant(readerID))
	return count, nil
}

// notifyRead sends the read receipt to the other participant and a fresh
// conversation summary to both sides.
func (s *messageService) notifyRead(conversationID, readerID, otherID uuid.UUID) {
	now := time.Now()
	s.notifier.NotifyUser(otherID, models.EventMessagesRead, map[string]interface{}{
		"reader_id":       readerID,
		"conversation_id": conversationID,
		"read_at":         now,
		"timestamp":       now,
	})

	updated, err := s.conversationRepo.FindByID(conversationID)
	if err != nil {
		log.Printf("error reloading conversation %s after read: %v", conversationID, err)
		return
	}
	s.notifier.NotifyUser(readerID, models.EventConversationUpdated, updated.Summary(readerID))
	s.notifier.NotifyUser(otherID, models.EventConversationUpdated, updated.Summary(otherID))
}

func (s *messageService) DeleteMessage(requesterID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return apiError.New("message not found", http.StatusNotFound)
		}
		return apiError.ErrInternalServerError
	}
	if msg.SenderID != requesterID {
		return apiError.New("you can only delete your own messages", http.StatusForbidden)
	}

	pairLock := s.pairLocks.get(models.PairKey(msg.SenderID, msg.ReceiverID))
	pairLock.Lock()
	defer pairLock.Unlock()

	conv, err := s.conversationRepo.FindByID(msg.ConversationID)
	if err != nil {
		return apiError.ErrInternalServerError
	}

	pointerChanged, err := s.messageRepo.DeleteAndReconcile(msg, conv)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return apiError.New("message not found", http.StatusNotFound)
		}
		return apiError.ErrInternalServerError
	}

	s.notifier.NotifyRoom(conv.ID, models.EventMessageDeleted, map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": conv.ID,
		"timestamp":       time.Now(),
	})

	if pointerChanged {
		updated, err := s.conversationRepo.FindByID(conv.ID)
		if err != nil {
			log.Printf("error reloading conversation %s after delete: %v", conv.ID, err)
			return nil
		}
		s.notifier.NotifyUser(updated.UserOneID, models.EventConversationUpdated, updated.Summary(updated.UserOneID))
		s.notifier.NotifyUser(updated.UserTwoID, models.EventConversationUpdated, updated.Summary(updated.UserTwoID))
	}

	return nil
}

func (s *messageService) ListConversations(userID uuid.UUID) ([]models.ConversationSummary, error) {
	convs, err := s.conversationRepo.ListForUser(userID)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for i := range convs {
		summaries = append(summaries, convs[i].Summary(userID))
	}
	return summaries, nil
}

func (s *messageService) GetMessages(userID, otherID uuid.UUID) ([]models.Message, error) {
	if !s.CanMessage(userID, otherID) {
		return nil, apiError.New("cannot access these messages", http.StatusForbidden)
	}

	conv, err := s.conversationRepo.FindByPair(userID, otherID)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return []models.Message{}, nil
		}
		return nil, apiError.ErrInternalServerError
	}

	msgs, err := s.messageRepo.ListByConversation(conv.ID)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}

	// Opening the history doubles as marking it read. Same pair lock as
	// SendMessage so the counter update cannot interleave with a send.
	pairLock := s.pairLocks.get(models.PairKey(userID, otherID))
	pairLock.Lock()
	defer pairLock.Unlock()

	count, err := s.messageRepo.MarkConversationRead(conv, userID)
	if err != nil {
		log.Printf("error marking conversation %s read: %v", conv.ID, err)
		return msgs, nil
	}
	if count > 0 {
		s.notifyRead(conv.ID, userID, conv.OtherParticipant(userID))
	}

	return msgs, nil
}

func (s *messageService) UnreadTotal(userID uuid.UUID) (int64, error) {
	total, err := s.conversationRepo.UnreadTotal(userID)
	if err != nil {
		return 0, apiError.ErrInternalServerError
	}
	return total, nil
}

func (s *messageService) MessagingPeers(userID uuid.UUID) ([]*models.UserResponse, error) {
	users, err := s.userRepo.MessagingPeers(userID)
	if err != nil {
		return nil, apiError.ErrInternalServerError
	}

	peers := make([]*models.UserResponse, 0, len(users))
	for i := range users {
		peers = append(peers, users[i].PublicProfile())
	}
	return peers, nil
}
