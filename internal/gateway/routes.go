package gateway

import (
	"errors"
	"net/http"

	"github.com/freightline/comms/internal/chat"
	"github.com/freightline/comms/internal/models"
	"github.com/freightline/comms/internal/notify"
	"github.com/freightline/comms/internal/proposal"
	"github.com/freightline/comms/internal/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps holds the collaborators the route handlers delegate to. The handlers
// themselves are validate-then-delegate glue; all business rules live in the
// engine and its collaborators.
type Deps struct {
	DB         *gorm.DB
	Engine     *proposal.Engine
	Sessions   *session.Registry
	Dispatcher *notify.Dispatcher
	Hub        *Hub
}

// registerRoutes sets up all gateway routes on the Gin router.
func registerRoutes(router *gin.Engine, deps Deps) {
	router.GET("/ws", deps.Hub.HandleWS)

	api := router.Group("/api")
	api.POST("/proposals", handleCreateProposal(deps))
	api.POST("/proposals/:id/response", handleRespondProposal(deps))
	api.POST("/proposals/cancel", handleCancelProposals(deps))
	api.POST("/messages", handleSendMessage(deps))
	api.POST("/messages/:id/status", handleAdvanceStatus(deps))
	api.GET("/conversations/:id/messages", handleHistory(deps))
	api.GET("/presence/:user", handlePresence(deps))
}

// statusForError maps engine errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, proposal.ErrUnknownType), errors.Is(err, proposal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, proposal.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, proposal.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, proposal.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func handleCreateProposal(deps Deps) gin.HandlerFunc {
	type request struct {
		Type           string   `json:"type" binding:"required"`
		ProposerID     string   `json:"proposerId" binding:"required"`
		ProposerRoles  []string `json:"proposerRoles"`
		RecipientID    string   `json:"recipientId" binding:"required"`
		ConversationID string   `json:"conversationId"`
		Payload        string   `json:"payload"`
		FallbackText   string   `json:"fallbackText"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := deps.Engine.Create(c.Request.Context(), proposal.CreateRequest{
			Type:           req.Type,
			ProposerID:     req.ProposerID,
			ProposerRoles:  req.ProposerRoles,
			RecipientID:    req.RecipientID,
			ConversationID: req.ConversationID,
			Payload:        req.Payload,
			FallbackText:   req.FallbackText,
		})
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func handleRespondProposal(deps Deps) gin.HandlerFunc {
	type request struct {
		ResponderID string `json:"responderId" binding:"required"`
		ResultData  string `json:"resultData"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := deps.Engine.Respond(c.Request.Context(), c.Param("id"), req.ResponderID, req.ResultData)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func handleCancelProposals(deps Deps) gin.HandlerFunc {
	type request struct {
		CorrelationID string `json:"correlationId" binding:"required"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := deps.Engine.CancelByCorrelation(c.Request.Context(), req.CorrelationID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cancelled": n})
	}
}

func handleSendMessage(deps Deps) gin.HandlerFunc {
	type request struct {
		ConversationID string `json:"conversationId"`
		SenderID       string `json:"senderId" binding:"required"`
		RecipientID    string `json:"recipientId"`
		Content        string `json:"content" binding:"required"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		db := deps.DB.WithContext(c.Request.Context())

		var conv *models.Conversation
		if req.ConversationID != "" {
			var row models.Conversation
			if err := db.Where("id = ?", req.ConversationID).First(&row).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			conv = &row
		} else {
			row, err := chat.FindOrCreateConversation(db, req.SenderID, req.RecipientID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			conv = row
		}

		msg, err := chat.SendText(db, conv.ID, req.SenderID, req.Content)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		deps.Dispatcher.SendToParties(conv.UserA, conv.UserB, notify.DestMessages,
			notify.MessageEvent{Message: msg}, "")
		c.JSON(http.StatusCreated, msg)
	}
}

func handleAdvanceStatus(deps Deps) gin.HandlerFunc {
	type request struct {
		Status string `json:"status" binding:"required"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		db := deps.DB.WithContext(c.Request.Context())
		if err := chat.AdvanceStatus(db, c.Param("id"), req.Status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleHistory(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := deps.DB.WithContext(c.Request.Context())
		msgs, err := chat.History(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func handlePresence(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user")
		classes := deps.Sessions.DeviceClasses(userID)
		if classes == nil {
			classes = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"userId":        userID,
			"connected":     deps.Sessions.IsConnected(userID),
			"deviceClasses": classes,
		})
	}
}
