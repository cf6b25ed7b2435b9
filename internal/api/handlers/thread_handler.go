package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/service"
)

// ThreadHandler handles message thread HTTP requests. Every read and
// write carries the acting party so visibility can be enforced.
type ThreadHandler struct {
	messages *service.MessageService
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(messages *service.MessageService) *ThreadHandler {
	return &ThreadHandler{messages: messages}
}

// RegisterRoutes registers the thread routes
func (h *ThreadHandler) RegisterRoutes(router gin.IRouter) {
	deals := router.Group("/deals/:id")
	{
		deals.GET("/threads", h.ListThreads)
		deals.POST("/threads", h.CreateThread)
	}

	threads := router.Group("/threads")
	{
		threads.GET("/:id/messages", h.ListMessages)
		threads.POST("/:id/messages", h.PostMessage)
	}
}

// CreateThread opens a thread on a deal
func (h *ThreadHandler) CreateThread(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ThreadType models.ThreadType `json:"thread_type" binding:"required,thread_type"`
		Title      string            `json:"title" binding:"required"`
		Private    bool              `json:"private"`
		PartyIDs   []uuid.UUID       `json:"party_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	thread, err := h.messages.CreateThread(c.Request.Context(), id, req.ThreadType, req.Title, req.Private, req.PartyIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// ListThreads lists the deal threads visible to the requesting party
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	partyID, err := uuid.Parse(c.Query("party_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	threads, err := h.messages.ListThreads(c.Request.Context(), id, partyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// PostMessage posts a message to a thread
func (h *ThreadHandler) PostMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		SenderPartyID uuid.UUID `json:"sender_party_id" binding:"required"`
		Body          string    `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	msg, err := h.messages.PostMessage(c.Request.Context(), id, req.SenderPartyID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns a thread's messages for the requesting party
func (h *ThreadHandler) ListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	partyID, err := uuid.Parse(c.Query("party_id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), id, partyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
