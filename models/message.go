package models

import (
	"time"
)

// Message is the single wire and storage shape for chat messages. The display
// metadata columns are denormalized onto every row the API returns so clients
// never need a separate user lookup; they are filled by the repository's joins
// and never written by the ORM.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Sender    uint      `gorm:"not null;index" json:"sender"`
	Receiver  uint      `gorm:"not null;index" json:"receiver"`
	Text      string    `gorm:"not null" json:"text"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`

	SenderName             string `gorm:"->;-:migration" json:"sender_name"`
	ReceiverName           string `gorm:"->;-:migration" json:"receiver_name"`
	SenderProfilePicture   string `gorm:"->;-:migration" json:"sender_profile_picture"`
	ReceiverProfilePicture string `gorm:"->;-:migration" json:"receiver_profile_picture"`
}

// Peer returns the other participant of the conversation this message belongs
// to, from localUser's point of view.
func (m *Message) Peer(localUser uint) uint {
	if m.Sender == localUser {
		return m.Receiver
	}
	return m.Sender
}

// PeerName returns the display name of the other participant.
func (m *Message) PeerName(localUser uint) string {
	if m.Sender == localUser {
		return m.ReceiverName
	}
	return m.SenderName
}

// PeerProfilePicture returns the avatar URL of the other participant.
func (m *Message) PeerProfilePicture(localUser uint) string {
	if m.Sender == localUser {
		return m.ReceiverProfilePicture
	}
	return m.SenderProfilePicture
}

// IsSender reports whether localUser authored this message.
func (m *Message) IsSender(localUser uint) bool {
	return m.Sender == localUser
}

// SendMessageRequest is the payload accepted by both the websocket channel and
// the REST send endpoint: {"receiver": <user id>, "message": <text>}.
type SendMessageRequest struct {
	Receiver uint   `json:"receiver" validate:"required"`
	Message  string `json:"message" validate:"required,min=1"`
}
