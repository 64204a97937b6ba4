package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/unimarket/unimarket-chat/errors"
	"github.com/unimarket/unimarket-chat/models"
	"github.com/unimarket/unimarket-chat/server/response"
)

// handleListMessages serves the full durable message history for the
// authenticated user: every message where they are sender or receiver, with
// peer display metadata denormalized onto each record.
func (s *Server) handleListMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		messages, apiErr := s.MessageService.GetMessagesForUser(userID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "messages retrieved", http.StatusOK, messages, nil)
	}
}

// handleSendMessage is the REST side channel used for the first contact with
// an ad owner. It writes into the same durable log as the websocket path, so
// conversation derivation is unaffected by which path created a message. If
// the receiver is connected, the saved message is also pushed live.
func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		var request models.SendMessageRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		msg, apiErr := s.MessageService.SaveMessage(userID, &request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		if s.Hub != nil {
			s.Hub.PushMessage(msg)
		}
		response.JSON(c, "message sent", http.StatusCreated, msg, nil)
	}
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	userID, ok := v.(uint)
	return userID, ok
}
