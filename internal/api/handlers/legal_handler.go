package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BuildFund/New-Main-sub000/internal/service"
)

// LegalHandler handles conditions precedent and requisition HTTP requests
type LegalHandler struct {
	conditions   *service.ConditionService
	requisitions *service.RequisitionService
}

// NewLegalHandler creates a new legal handler
func NewLegalHandler(conditions *service.ConditionService, requisitions *service.RequisitionService) *LegalHandler {
	return &LegalHandler{conditions: conditions, requisitions: requisitions}
}

// RegisterRoutes registers the legal routes
func (h *LegalHandler) RegisterRoutes(router gin.IRouter) {
	deals := router.Group("/deals/:id")
	{
		deals.GET("/conditions", h.ListCPs)
		deals.POST("/conditions", h.AddCP)
		deals.GET("/requisitions", h.ListRequisitions)
		deals.POST("/requisitions", h.RaiseRequisition)
	}

	conditions := router.Group("/conditions")
	{
		conditions.POST("/:id/satisfy", h.SatisfyCP)
		conditions.POST("/:id/reject", h.RejectCP)
		conditions.POST("/:id/waive", h.WaiveCP)
	}

	requisitions := router.Group("/requisitions")
	{
		requisitions.POST("/:id/respond", h.RespondToRequisition)
		requisitions.POST("/:id/approve", h.ApproveRequisition)
		requisitions.POST("/:id/reject-response", h.RejectResponse)
	}
}

// AddCP records a condition precedent on a deal
func (h *LegalHandler) AddCP(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req service.AddCPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	req.ActorRef = actorRef(c, req.ActorRef)

	cp, err := h.conditions.AddCP(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cp)
}

// ListCPs lists a deal's conditions precedent
func (h *LegalHandler) ListCPs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	cps, err := h.conditions.ListCPs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conditions": cps})
}

// SatisfyCP marks a condition precedent satisfied
func (h *LegalHandler) SatisfyCP(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorRef    string `json:"actor_ref"`
		DocumentRef string `json:"document_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	cp, err := h.conditions.SatisfyCP(c.Request.Context(), id, actorRef(c, req.ActorRef), req.DocumentRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// RejectCP sends a condition precedent back with a reason
func (h *LegalHandler) RejectCP(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorRef string `json:"actor_ref"`
		Reason   string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	cp, err := h.conditions.RejectCP(c.Request.Context(), id, actorRef(c, req.ActorRef), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// WaiveCP waives a condition precedent
func (h *LegalHandler) WaiveCP(c *gin.Context) {
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

	cp, err := h.conditions.WaiveCP(c.Request.Context(), id, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// RaiseRequisition raises a formal legal query on a deal
func (h *LegalHandler) RaiseRequisition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		RaisedByID uuid.UUID `json:"raised_by_id" binding:"required"`
		Question   string    `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	requisition, err := h.requisitions.RaiseRequisition(c.Request.Context(), id, req.RaisedByID, req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, requisition)
}

// ListRequisitions lists a deal's requisitions
func (h *LegalHandler) ListRequisitions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	reqs, err := h.requisitions.ListRequisitions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requisitions": reqs})
}

// RespondToRequisition records the borrower side's response
func (h *LegalHandler) RespondToRequisition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorRef string `json:"actor_ref"`
		Response string `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	requisition, err := h.requisitions.RespondToRequisition(c.Request.Context(), id, actorRef(c, req.ActorRef), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisition)
}

// ApproveRequisition accepts a response and closes the query
func (h *LegalHandler) ApproveRequisition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ApproverID uuid.UUID `json:"approver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	requisition, err := h.requisitions.ApproveRequisition(c.Request.Context(), id, req.ApproverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisition)
}

// RejectResponse sends a response back and reopens the requisition
func (h *LegalHandler) RejectResponse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ReviewerID uuid.UUID `json:"reviewer_id" binding:"required"`
		Reason     string    `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	requisition, err := h.requisitions.RejectResponse(c.Request.Context(), id, req.ReviewerID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisition)
}
