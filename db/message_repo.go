package db

import (
	"time"

	"github.com/pkg/errors"
	"github.com/unimarket/unimarket-chat/models"
	"gorm.io/gorm"
)

// MessageRepository is the durable message log. Both delivery paths (websocket
// hub and REST side channel) write through it, so every record carries the
// same shape regardless of origin.
type MessageRepository interface {
	SaveMessage(msg *models.Message) error
	MessagesForUser(userID uint) ([]models.Message, error)
	FindMessageByID(id uint) (*models.Message, error)
}

type messageRepo struct {
	DB *gorm.DB
}

func NewMessageRepo(db *GormDB) MessageRepository {
	return &messageRepo{db.DB}
}

const denormalizedSelect = `messages.id, messages.sender, messages.receiver, messages.text, messages.timestamp,
	su.username AS sender_name, ru.username AS receiver_name,
	su.profile_picture AS sender_profile_picture, ru.profile_picture AS receiver_profile_picture`

// SaveMessage stamps server time on the record and persists it, then reloads
// the denormalized view so callers can hand it straight to clients. The server
// clock is the single ordering authority; client clocks are never trusted.
func (r *messageRepo) SaveMessage(msg *models.Message) error {
	msg.Timestamp = time.Now().UTC()
	if err := r.DB.Create(msg).Error; err != nil {
		return errors.Wrap(err, "saving message")
	}
	saved, err := r.FindMessageByID(msg.ID)
	if err != nil {
		return err
	}
	*msg = *saved
	return nil
}

// MessagesForUser returns every message where the user is sender or receiver,
// with peer display metadata joined in.
func (r *messageRepo) MessagesForUser(userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.Table("messages").
		Select(denormalizedSelect).
		Joins("JOIN users su ON su.id = messages.sender").
		Joins("JOIN users ru ON ru.id = messages.receiver").
		Where("messages.sender = ? OR messages.receiver = ?", userID, userID).
		Order("messages.timestamp ASC").
		Scan(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	return messages, nil
}

func (r *messageRepo) FindMessageByID(id uint) (*models.Message, error) {
	var msg models.Message
	err := r.DB.Table("messages").
		Select(denormalizedSelect).
		Joins("JOIN users su ON su.id = messages.sender").
		Joins("JOIN users ru ON ru.id = messages.receiver").
		Where("messages.id = ?", id).
		Scan(&msg).Error
	if err != nil {
		return nil, errors.Wrap(err, "finding message")
	}
	return &msg, nil
}
