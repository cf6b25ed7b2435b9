package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/service"
	"github.com/BuildFund/New-Main-sub000/internal/tracing"
)

// DealHandler handles deal-level HTTP requests
type DealHandler struct {
	deals     *service.DealService
	parties   *service.PartyService
	readiness *service.ReadinessService
	audit     *service.AuditRecorder
	tracer    tracing.Tracer
}

// NewDealHandler creates a new deal handler
func NewDealHandler(
	deals *service.DealService,
	parties *service.PartyService,
	readiness *service.ReadinessService,
	audit *service.AuditRecorder,
	tracer tracing.Tracer,
) *DealHandler {
	return &DealHandler{
		deals:     deals,
		parties:   parties,
		readiness: readiness,
		audit:     audit,
		tracer:    tracer,
	}
}

// RegisterRoutes registers the deal routes
func (h *DealHandler) RegisterRoutes(router gin.IRouter) {
	deals := router.Group("/deals")
	{
		deals.POST("", h.CreateDeal)
		deals.GET("", h.ListDeals)
		deals.GET("/summary", h.StatusSummary)
		deals.GET("/:id", h.GetDeal)
		deals.PATCH("/:id/status", h.UpdateStatus)
		deals.GET("/:id/readiness", h.GetReadiness)
		deals.GET("/:id/audit", h.GetAuditTrail)

		deals.GET("/:id/parties", h.ListParties)
		deals.POST("/:id/parties", h.InviteParty)
		deals.POST("/:id/parties/:partyId/activate-lender-solicitor", h.ActivateLenderSolicitor)
	}

	parties := router.Group("/parties")
	{
		parties.POST("/:id/confirm", h.ConfirmParty)
		parties.POST("/:id/remove", h.RemoveParty)
	}

	router.GET("/audit/search", h.SearchAudit)
}

// CreateDeal creates a deal from an accepted application
func (h *DealHandler) CreateDeal(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-deal")
	defer h.tracer.EndTransaction(txn)

	var req service.CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	req.ActorRef = actorRef(c, req.ActorRef)

	h.tracer.AddAttribute(txn, "application_ref", req.ApplicationRef)

	deal, created, err := h.deals.CreateDeal(c.Request.Context(), &req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"deal": deal, "created": created})
}

// GetDeal returns a deal by ID
func (h *DealHandler) GetDeal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	deal, err := h.deals.GetDeal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// ListDeals lists deals, optionally filtered by status
func (h *DealHandler) ListDeals(c *gin.Context) {
	deals, err := h.deals.ListDeals(c.Request.Context(), models.DealStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": deals})
}

// StatusSummary returns deal counts per status
func (h *DealHandler) StatusSummary(c *gin.Context) {
	summary, err := h.deals.StatusSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": summary})
}

// UpdateStatus moves a deal between active, on_hold and cancelled
func (h *DealHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		Status   models.DealStatus `json:"status" binding:"required"`
		ActorRef string            `json:"actor_ref"`
		Reason   string            `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	deal, err := h.deals.UpdateStatus(c.Request.Context(), id, req.Status, actorRef(c, req.ActorRef), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// GetReadiness returns the weighted completion readiness breakdown
func (h *DealHandler) GetReadiness(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	breakdown, err := h.readiness.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// GetAuditTrail returns a deal's audit events in order
func (h *DealHandler) GetAuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	events, err := h.audit.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// SearchAudit queries the audit reporting index across deals
func (h *DealHandler) SearchAudit(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		size = parsed
	}

	events, err := h.audit.Search(
		c.Request.Context(),
		c.Query("deal_ref"),
		models.AuditEventType(c.Query("event_type")),
		size,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ListParties lists a deal's parties
func (h *DealHandler) ListParties(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	parties, err := h.parties.ListParties(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parties": parties})
}

// InviteParty invites a party onto a deal
func (h *DealHandler) InviteParty(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req service.InvitePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	req.ActorRef = actorRef(c, req.ActorRef)

	party, err := h.parties.InviteParty(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Info().Str("deal_id", id.String()).Str("party_ref", party.PartyRef).Msg("Party invited via API")
	c.JSON(http.StatusCreated, party)
}

// ConfirmParty accepts an invitation
func (h *DealHandler) ConfirmParty(c *gin.Context) {
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

	party, err := h.parties.ConfirmParty(c.Request.Context(), id, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, party)
}

// ActivateLenderSolicitor makes a confirmed lender-side solicitor the
// active one, replacing any current holder
func (h *DealHandler) ActivateLenderSolicitor(c *gin.Context) {
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	partyID, err := uuid.Parse(c.Param("partyId"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorRef string `json:"actor_ref"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	party, err := h.parties.ActivateLenderSolicitor(c.Request.Context(), dealID, partyID, actorRef(c, req.ActorRef), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, party)
}

// RemoveParty removes a party from a deal
func (h *DealHandler) RemoveParty(c *gin.Context) {
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

	party, err := h.parties.RemoveParty(c.Request.Context(), id, actorRef(c, req.ActorRef), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, party)
}
