// Chatbot HTTP handlers.
//
// This file exposes the rule-based assistant:
//   - GET  /chatbot/greeting      (opening message)
//   - POST /chatbot/message       (keyword-matched reply)
//   - POST /chatbot/quick-action  (canned prompt + its reply)
//
// The responder is stateless; no conversation history is kept server-side.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/chatbot"
)

// ChatbotMessageRequest is the JSON payload for a free-form assistant message.
type ChatbotMessageRequest struct {
	Message string `json:"message" binding:"required" example:"How do I read my report?"`
}

// ChatbotQuickActionRequest is the JSON payload for a quick-action button.
type ChatbotQuickActionRequest struct {
	Action string `json:"action" binding:"required" example:"viewReport"`
}

// ChatbotGreeting godoc
// @ID          chatbotGreeting
// @Summary     Assistant greeting
// @Tags        Chatbot
// @Produce     json
//
// @Success     200  {object}  map[string]any  "reply"
// @Router      /chatbot/greeting [get]
func (h *Handlers) ChatbotGreeting(c *gin.Context) {
	ok(c, http.StatusOK, envelope("reply", chatbot.Greeting, nil))
}

// ChatbotMessage godoc
// @ID          chatbotMessage
// @Summary     Send a message to the assistant
// @Description Matches the lowercased message against the keyword rules and
// @Description returns the first hit, falling back to the default reply.
// @Tags        Chatbot
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ChatbotMessageRequest  true  "User message"
//
// @Success     200  {object}  map[string]any          "reply"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /chatbot/message [post]
func (h *Handlers) ChatbotMessage(c *gin.Context) {
	var req ChatbotMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	ok(c, http.StatusOK, envelope("reply", h.bot.Reply(req.Message), nil))
}

// ChatbotQuickAction godoc
// @ID          chatbotQuickAction
// @Summary     Trigger a quick action
// @Description Resolves the action to its canned prompt and answers it as if
// @Description the user had typed it.
// @Tags        Chatbot
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ChatbotQuickActionRequest  true  "Quick action"
//
// @Success     200  {object}  map[string]any          "prompt + reply"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /chatbot/quick-action [post]
func (h *Handlers) ChatbotQuickAction(c *gin.Context) {
	var req ChatbotQuickActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action required")
		return
	}
	prompt := h.bot.QuickActionPrompt(req.Action)
	ok(c, http.StatusOK, envelope("reply", h.bot.Reply(prompt), gin.H{"prompt": prompt}))
}
