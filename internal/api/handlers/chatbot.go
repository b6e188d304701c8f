package handlers

import (
	"net/http"
	"strings"

	"grchub/internal/api/middleware"
	"grchub/internal/domain/services"
	"grchub/pkg/logger"
)

// ChatbotHandler handles the conversational risk intake and the freeform
// assistant endpoint.
type ChatbotHandler struct {
	intake    *services.Intake
	assistant *services.Assistant
	logger    *logger.Logger
}

// NewChatbotHandler creates a new ChatbotHandler
func NewChatbotHandler(intake *services.Intake, assistant *services.Assistant, log *logger.Logger) *ChatbotHandler {
	return &ChatbotHandler{
		intake:    intake,
		assistant: assistant,
		logger:    log.WithComponent("chatbot"),
	}
}

type chatbotMessage struct {
	Message string `json:"message"`
}

// Message handles POST /api/v1/chatbot/message. The conversation is keyed
// by the caller's authenticated session identity, so parallel clients with
// different keys never share state.
func (h *ChatbotHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req chatbotMessage
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sessionKey := middleware.GetSessionID(r.Context())
	if sessionKey == "" {
		respondError(w, http.StatusUnauthorized, "no session identity", "")
		return
	}

	reply, err := h.intake.HandleMessage(r.Context(), sessionKey, req.Message)
	if err != nil {
		h.logger.Error().Err(err).Msg("intake message failed")
		respondInternal(w, err)
		return
	}
	respondData(w, http.StatusOK, reply)
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/v1/chatbot/ask. Delegates to the LLM assistant;
// when the assistant is disabled or unreachable the reply is a polite
// apology, never an error status.
func (h *ChatbotHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondValidation(w, "question is required")
		return
	}

	answer := h.assistant.Ask(r.Context(), req.Question)
	respondData(w, http.StatusOK, map[string]string{"answer": answer})
}
