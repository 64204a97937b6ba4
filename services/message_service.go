package services

import (
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/unimarket/unimarket-chat/config"
	"github.com/unimarket/unimarket-chat/db"
	apiError "github.com/unimarket/unimarket-chat/errors"
	"github.com/unimarket/unimarket-chat/models"
	"gorm.io/gorm"
)

// MessageService persists a send from either delivery path and returns the
// saved record with server-assigned id, server timestamp and denormalized peer
// metadata — the exact frame the hub echoes and pushes.
type MessageService interface {
	SaveMessage(senderID uint, request *models.SendMessageRequest) (*models.Message, *apiError.Error)
	GetMessagesForUser(userID uint) ([]models.Message, *apiError.Error)
}

type messageService struct {
	Config      *config.Config
	messageRepo db.MessageRepository
	authRepo    db.AuthRepository
	validate    *validator.Validate
}

func NewMessageService(messageRepo db.MessageRepository, authRepo db.AuthRepository, conf *config.Config) MessageService {
	return &messageService{
		Config:      conf,
		messageRepo: messageRepo,
		authRepo:    authRepo,
		validate:    validator.New(),
	}
}

func (s *messageService) SaveMessage(senderID uint, request *models.SendMessageRequest) (*models.Message, *apiError.Error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, apiError.New("receiver and message are required", http.StatusBadRequest)
	}
	if request.Receiver == senderID {
		return nil, apiError.New("cannot message yourself", http.StatusBadRequest)
	}

	if _, err := s.authRepo.FindUserByID(request.Receiver); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apiError.New("receiver not found", http.StatusNotFound)
		}
		log.Printf("SaveMessage error finding receiver: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	msg := &models.Message{
		Sender:   senderID,
		Receiver: request.Receiver,
		Text:     request.Message,
	}
	if err := s.messageRepo.SaveMessage(msg); err != nil {
		log.Printf("SaveMessage error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return msg, nil
}

func (s *messageService) GetMessagesForUser(userID uint) ([]models.Message, *apiError.Error) {
	messages, err := s.messageRepo.MessagesForUser(userID)
	if err != nil {
		log.Printf("GetMessagesForUser error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return messages, nil
}
