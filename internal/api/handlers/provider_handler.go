package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/service"
)

// ProviderHandler handles provider selection and deliverable HTTP requests
type ProviderHandler struct {
	providers *service.ProviderService
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(providers *service.ProviderService) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

// RegisterRoutes registers the provider routes
func (h *ProviderHandler) RegisterRoutes(router gin.IRouter) {
	deals := router.Group("/deals/:id")
	{
		deals.GET("/providers", h.ListSelections)
		deals.POST("/providers", h.InstructProvider)
		deals.GET("/deliverables", h.ListDeliverables)
	}

	providers := router.Group("/providers")
	{
		providers.POST("/:id/advance", h.AdvanceProviderStage)
		providers.POST("/:id/deliverables", h.SubmitDeliverable)
	}

	router.POST("/deliverables/:id/review", h.ReviewDeliverable)
}

// InstructProvider appoints a provider for a role on a deal
func (h *ProviderHandler) InstructProvider(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		Role     models.ProviderRole `json:"role" binding:"required"`
		PartyID  uuid.UUID           `json:"party_id" binding:"required"`
		ActorRef string              `json:"actor_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	sel, err := h.providers.InstructProvider(c.Request.Context(), id, req.Role, req.PartyID, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sel)
}

// ListSelections lists a deal's provider selections
func (h *ProviderHandler) ListSelections(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	sels, err := h.providers.ListSelections(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selections": sels})
}

// AdvanceProviderStage moves a provider selection to its next stage
func (h *ProviderHandler) AdvanceProviderStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorRef string `json:"actor_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	sel, err := h.providers.AdvanceProviderStage(c.Request.Context(), id, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// SubmitDeliverable records a provider work product for review
func (h *ProviderHandler) SubmitDeliverable(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		DeliverableType models.DeliverableType `json:"deliverable_type" binding:"required"`
		DocumentRef     string                 `json:"document_ref" binding:"required"`
		ActorRef        string                 `json:"actor_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	d, err := h.providers.SubmitDeliverable(c.Request.Context(), id, req.DeliverableType, req.DocumentRef, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// ReviewDeliverable approves or rejects a submitted deliverable
func (h *ProviderHandler) ReviewDeliverable(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		Approve  *bool  `json:"approve" binding:"required"`
		ActorRef string `json:"actor_ref"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	d, err := h.providers.ReviewDeliverable(c.Request.Context(), id, *req.Approve, actorRef(c, req.ActorRef), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListDeliverables lists a deal's deliverables
func (h *ProviderHandler) ListDeliverables(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	ds, err := h.providers.ListDeliverables(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliverables": ds})
}
