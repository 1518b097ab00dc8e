package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carmart-service/internal/models"
	"carmart-service/internal/observability"
	"carmart-service/internal/repositories"
	"carmart-service/internal/ws"
)

// ThreadHandler manages the messaging endpoints: resolve-or-create plus
// append, thread listing and detail, and read receipts.
type ThreadHandler struct {
	threadRepo  repositories.ThreadRepository
	messageRepo repositories.MessageRepository
	catalogRepo repositories.CatalogRepository
	hub         *ws.Hub
}

// NewThreadHandler builds a ThreadHandler.
func NewThreadHandler(threadRepo repositories.ThreadRepository, messageRepo repositories.MessageRepository, catalogRepo repositories.CatalogRepository, hub *ws.Hub) *ThreadHandler {
	return &ThreadHandler{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		catalogRepo: catalogRepo,
		hub:         hub,
	}
}

// SendMessage resolves the thread for (listing, sender, receiver), durably
// appends the message, then fans it out. The broadcast only runs after the
// store returns: a reader can never see a broadcast without the record.
func (h *ThreadHandler) SendMessage(c *gin.Context) {
	listingID, err := strconv.Atoi(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	var req struct {
		ReceiverID int    `json:"receiver_id" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.catalogRepo.GetListing(c.Request.Context(), listingID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrListingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "listing not found"})
		return
	}

	known, err := h.catalogRepo.UserExists(c.Request.Context(), req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify receiver"})
		return
	}
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown receiver"})
		return
	}

	thread, err := h.threadRepo.ResolveOrCreate(c.Request.Context(), listingID, userID, req.ReceiverID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfThread) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve thread"})
		return
	}

	msg, err := h.messageRepo.AppendMessage(c.Request.Context(), thread.ID, userID, req.Content)
	if err != nil {
		if errors.Is(err, repositories.ErrEmptyContent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message content is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	observability.IncMessageStored()
	_ = observability.PublishEvent(c.Request.Context(), "domain_events.messages", observability.EventEnvelope{
		EventType: "domain_events",
		EventName: "message_sent",
		Payload:   gin.H{"thread_id": thread.ID, "message_id": msg.ID, "listing_id": listingID},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))

	h.hub.BroadcastMessage(thread.ID, msg)
	c.JSON(http.StatusCreated, gin.H{"thread_id": thread.ID, "message": msg})
}

// ListThreads returns summaries of every conversation the principal is in.
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	userID := c.GetInt("userID")

	threads, err := h.threadRepo.ListThreadsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load threads"})
		return
	}

	counterpartIDs := make([]int, 0, len(threads))
	for _, t := range threads {
		counterpartIDs = append(counterpartIDs, t.CounterpartID)
	}

	usernames, err := h.catalogRepo.BulkUsernames(c.Request.Context(), counterpartIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load counterpart info"})
		return
	}

	type threadResponse struct {
		models.ThreadSummary
		CounterpartUsername string `json:"counterpart_username,omitempty"`
	}

	responses := make([]threadResponse, 0, len(threads))
	for _, t := range threads {
		responses = append(responses, threadResponse{ThreadSummary: t, CounterpartUsername: usernames[t.CounterpartID]})
	}

	c.JSON(http.StatusOK, gin.H{"threads": responses})
}

// GetThread returns the thread with its full message sequence. Participants
// only.
func (h *ThreadHandler) GetThread(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	userID := c.GetInt("userID")
	thread, err := h.threadRepo.GetThread(c.Request.Context(), threadID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrThreadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "thread not found"})
		return
	}
	if !thread.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a thread participant"})
		return
	}

	msgs, err := h.messageRepo.ListForThread(c.Request.Context(), threadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread": thread, "messages": msgs})
}

// MarkRead flags a message as read. Either participant may call it, the
// sender included; repeated calls are no-op successes.
func (h *ThreadHandler) MarkRead(c *gin.Context) {
	threadID, messageID, ok := parseThreadMessageIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	thread, err := h.threadRepo.GetThread(c.Request.Context(), threadID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrThreadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "thread not found"})
		return
	}
	if !thread.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a thread participant"})
		return
	}

	msg, err := h.messageRepo.MarkRead(c.Request.Context(), threadID, messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	h.hub.BroadcastRead(threadID, messageID)
	c.JSON(http.StatusOK, msg)
}

func parseThreadMessageIDs(c *gin.Context) (int, int, bool) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return 0, 0, false
	}
	msgID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, 0, false
	}
	return threadID, msgID, true
}
