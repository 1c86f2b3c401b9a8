// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
)

// Fixed response texts.
const (
	msgChatRequired     = "Message and Session ID are required."
	msgChatFailed       = "An internal error occurred while processing your request."
	msgFeedbackRequired = "Query, answer, and rating are required."
	msgFeedbackRating   = "Rating must be positive or negative."
	msgFeedbackFailed   = "An internal error occurred while processing feedback."
	msgFeedbackThanks   = "Thank you for your feedback."
	msgSessionInvalid   = "A valid Session ID is required."
	msgSessionNotFound  = "Conversation not found."
	msgLimitInvalid     = "Limit must be a positive integer."
	msgHistoryFailed    = "An internal error occurred while loading conversations."
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type feedbackRequest struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
	Rating string `json:"rating"`
}

type handler struct {
	svc    Service
	logger *slog.Logger
}

func (h *handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgChatRequired})
		return
	}

	result, err := h.svc.Chat(c.Request.Context(), req.Message, req.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgChatRequired})
			return
		}
		h.logger.Error("chat failed", "session", req.SessionID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgChatFailed})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgFeedbackRequired})
		return
	}

	_, err := h.svc.RecordFeedback(c.Request.Context(), req.Query, req.Answer, req.Rating)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msgFeedbackThanks})
	case errors.Is(err, core.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgFeedbackRating})
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgFeedbackRequired})
	default:
		h.logger.Error("feedback failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgFeedbackFailed})
	}
}

func (h *handler) conversation(c *gin.Context) {
	sessionID := c.Param("sessionId")

	conv, err := h.svc.Conversation(c.Request.Context(), sessionID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, conv)
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgSessionInvalid})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgSessionNotFound})
	default:
		h.logger.Error("conversation lookup failed", "session", sessionID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgHistoryFailed})
	}
}

func (h *handler) recentConversations(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgLimitInvalid})
			return
		}
		limit = min(n, maxListLimit)
	}

	summaries, err := h.svc.RecentConversations(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing conversations failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgHistoryFailed})
		return
	}
	if summaries == nil {
		summaries = []*core.ConversationSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries, "total": len(summaries)})
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
