package handler

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/chat"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var in chat.CreateGroupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	userID := auth.GetUserID(c)
	group, err := h.Chat.CreateGroup(c.Request.Context(), userID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	detail, err := h.Chat.GetGroupDetail(c.Request.Context(), group.ID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.Chat.ListUserGroups(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *Handler) GetGroup(c *gin.Context) {
	detail, err := h.Chat.GetGroupDetail(c.Request.Context(), c.Param("id"), auth.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	var in chat.UpdateGroupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	group, err := h.Chat.UpdateGroup(c.Request.Context(), c.Param("id"), auth.GetUserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *Handler) AddMembers(c *gin.Context) {
	var in chat.AddMembersInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	groupID := c.Param("id")
	added, err := h.Chat.AddMembers(c.Request.Context(), groupID, auth.GetUserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Gateway.NotifyMembersAdded(groupID, added)
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (h *Handler) LeaveGroup(c *gin.Context) {
	result, err := h.Chat.LeaveGroup(c.Request.Context(), c.Param("id"), auth.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Gateway.NotifyMemberLeft(*result)
	c.JSON(http.StatusOK, result)
}

// SendMessage persists then broadcasts, exactly like a live "message" frame.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	view, err := h.Chat.SendMessage(c.Request.Context(), c.Param("id"), auth.GetUserID(c), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Gateway.NotifyMessage(*view)
	c.JSON(http.StatusCreated, view)
}

// GetMessages serves ?limit=1..N (default from config) and ?before=RFC3339.
func (h *Handler) GetMessages(c *gin.Context) {
	var q chat.HistoryQuery

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.respondError(c, apperrors.Validation("limit must be a positive integer"))
			return
		}
		q.Limit = limit
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.respondError(c, apperrors.Validation("before must be an RFC3339 timestamp"))
			return
		}
		q.Before = &before
	}

	messages, err := h.Chat.GetMessages(c.Request.Context(), c.Param("id"), auth.GetUserID(c), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Presence reports live connection state. It is diagnostic only and
// gated on membership like any other read.
func (h *Handler) Presence(c *gin.Context) {
	groupID := c.Param("id")
	if _, err := h.Chat.AuthorizeSubscription(c.Request.Context(), groupID, auth.GetUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}

	registry := h.Gateway.Registry()
	c.JSON(http.StatusOK, gin.H{
		"group_id":           groupID,
		"connection_count":   registry.ConnectionCount(groupID),
		"connected_user_ids": registry.ConnectedUserIDs(groupID),
	})
}
