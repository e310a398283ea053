package server

import (
	"net/http"

	errs "github.com/epicshot/messaging/errors"
	"github.com/epicshot/messaging/models"
	"github.com/epicshot/messaging/server/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leebenson/conform"
)

func pathID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errs.New("invalid id", http.StatusBadRequest)
	}
	return id, nil
}

func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}

		var req models.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if err := conform.Strings(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		msg, err := s.MessageService.SendMessage(user.ID, &req)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Message sent successfully", http.StatusCreated, msg, nil)
	}
}

func (s *Server) handleGetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}
		otherID, err := pathID(c)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		msgs, err := s.MessageService.GetMessages(user.ID, otherID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, msgs, nil)
	}
}

func (s *Server) handleEditMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}
		messageID, err := pathID(c)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		var req models.EditMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if err := conform.Strings(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		msg, err := s.MessageService.EditMessage(user.ID, messageID, req.Content)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Message updated successfully", http.StatusOK, msg, nil)
	}
}

func (s *Server) handleDeleteMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}
		messageID, err := pathID(c)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		if err := s.MessageService.DeleteMessage(user.ID, messageID); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Message deleted successfully", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleToggleReaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}
		messageID, err := pathID(c)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		var req models.ReactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		reactions, err := s.MessageService.ToggleReaction(user.ID, messageID, req.Emoji)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"reactions": reactions}, nil)
	}
}

func (s *Server) handleGetReactions() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID, err := pathID(c)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		reactions, err := s.MessageService.GetReactions(messageID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"reactions": reactions}, nil)
	}
}

func (s *Server) handleMarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}

		var req models.MarkReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		count, err := s.MessageService.MarkRead(user.ID, req.ConversationID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "Messages marked as read", http.StatusOK, gin.H{"updated_count": count}, nil)
	}
}

func (s *Server) handleGetConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}

		conversations, err := s.MessageService.ListConversations(user.ID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, conversations, nil)
	}
}

func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}

		total, err := s.MessageService.UnreadTotal(user.ID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"unread_count": total}, nil)
	}
}

func (s *Server) handleMessagingPeers() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}

		peers, err := s.MessageService.MessagingPeers(user.ID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, peers, nil)
	}
}

func (s *Server) handleOnlineStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.OnlineStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		presence := s.Hub.Presence()
		status := make(map[string]bool, len(req.UserIDs))
		for _, id := range req.UserIDs {
			status[id.String()] = presence.IsOnline(id)
		}
		response.JSON(c, "", http.StatusOK, gin.H{"online_status": status}, nil)
	}
}

func (s *Server) handleGetOnlineUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.JSON(c, "", http.StatusOK, s.Hub.Presence().OnlineUsers(), nil)
	}
}
