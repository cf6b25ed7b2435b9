package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/service"
	"github.com/BuildFund/New-Main-sub000/internal/tracing"
)

// DrawdownHandler handles drawdown HTTP requests
type DrawdownHandler struct {
	drawdowns *service.DrawdownService
	tracer    tracing.Tracer
}

// NewDrawdownHandler creates a new drawdown handler
func NewDrawdownHandler(drawdowns *service.DrawdownService, tracer tracing.Tracer) *DrawdownHandler {
	return &DrawdownHandler{drawdowns: drawdowns, tracer: tracer}
}

// RegisterRoutes registers the drawdown routes
func (h *DrawdownHandler) RegisterRoutes(router gin.IRouter) {
	deals := router.Group("/deals/:id")
	{
		deals.GET("/drawdowns", h.ListDrawdowns)
		deals.POST("/drawdowns", h.RequestDrawdown)
	}

	drawdowns := router.Group("/drawdowns")
	{
		drawdowns.POST("/:id/ms-review", h.UpdateMSReview)
		drawdowns.POST("/:id/approve", h.ApproveDrawdown)
		drawdowns.POST("/:id/reject", h.RejectDrawdown)
		drawdowns.POST("/:id/pay", h.MarkPaid)
		drawdowns.POST("/:id/documents", h.AddDocument)
	}
}

// RequestDrawdown opens a funds-release request on a development facility
func (h *DrawdownHandler) RequestDrawdown(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-request-drawdown")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		RequestedByID uuid.UUID `json:"requested_by_id" binding:"required"`
		Amount        float64   `json:"amount" binding:"required"`
		Purpose       string    `json:"purpose"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	dd, err := h.drawdowns.RequestDrawdown(c.Request.Context(), id, req.RequestedByID, req.Amount, req.Purpose)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dd)
}

// ListDrawdowns lists a deal's drawdowns in sequence order. With
// in_flight=true only drawdowns still moving through an approval
// track are returned.
func (h *DrawdownHandler) ListDrawdowns(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var dds []*models.Drawdown
	if c.Query("in_flight") == "true" {
		dds, err = h.drawdowns.ListInFlight(c.Request.Context(), id)
	} else {
		dds, err = h.drawdowns.ListDrawdowns(c.Request.Context(), id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drawdowns": dds})
}

// UpdateMSReview moves the monitoring surveyor track of a drawdown
func (h *DrawdownHandler) UpdateMSReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorPartyID uuid.UUID             `json:"actor_party_id" binding:"required"`
		Status       models.MSReviewStatus `json:"status" binding:"required"`
		Reason       string                `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	dd, err := h.drawdowns.UpdateMSReview(c.Request.Context(), id, req.ActorPartyID, req.Status, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dd)
}

// ApproveDrawdown is the lender's approval of a drawdown
func (h *DrawdownHandler) ApproveDrawdown(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorPartyID uuid.UUID `json:"actor_party_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	dd, err := h.drawdowns.ApproveDrawdown(c.Request.Context(), id, req.ActorPartyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dd)
}

// RejectDrawdown is the lender's rejection of a drawdown
func (h *DrawdownHandler) RejectDrawdown(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorPartyID uuid.UUID `json:"actor_party_id" binding:"required"`
		Reason       string    `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	dd, err := h.drawdowns.RejectDrawdown(c.Request.Context(), id, req.ActorPartyID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dd)
}

// MarkPaid records the funds release of an approved drawdown
func (h *DrawdownHandler) MarkPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorPartyID uuid.UUID `json:"actor_party_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	dd, err := h.drawdowns.MarkPaid(c.Request.Context(), id, req.ActorPartyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dd)
}

// AddDocument attaches supporting evidence to a drawdown
func (h *DrawdownHandler) AddDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		Category    models.DrawdownDocumentCategory `json:"category" binding:"required"`
		DocumentRef string                          `json:"document_ref" binding:"required"`
		UploadedBy  string                          `json:"uploaded_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	doc, err := h.drawdowns.AddDocument(c.Request.Context(), id, req.Category, req.DocumentRef, actorRef(c, req.UploadedBy))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}
