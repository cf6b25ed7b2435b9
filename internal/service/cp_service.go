package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
)

// AddCPRequest carries a new condition precedent.
type AddCPRequest struct {
	Title          string           `json:"title" binding:"required"`
	Description    string           `json:"description"`
	IsMandatory    *bool            `json:"is_mandatory"`
	OwnerPartyType models.PartyType `json:"owner_party_type" binding:"required,party_type"`
	ActorRef       string           `json:"actor_ref"`
}

// ConditionService owns the conditions precedent ledger
type ConditionService struct {
	dealRepo   repository.DealRepository
	cpRepo     repository.ConditionRepository
	threadRepo repository.ThreadRepository
	readiness  *ReadinessService
	audit      *AuditRecorder
	metrics    *metrics.Metrics
}

// NewConditionService creates a new condition service
func NewConditionService(
	dealRepo repository.DealRepository,
	cpRepo repository.ConditionRepository,
	threadRepo repository.ThreadRepository,
	readiness *ReadinessService,
	audit *AuditRecorder,
	m *metrics.Metrics,
) *ConditionService {
	return &ConditionService{
		dealRepo:   dealRepo,
		cpRepo:     cpRepo,
		threadRepo: threadRepo,
		readiness:  readiness,
		audit:      audit,
		metrics:    m,
	}
}

// AddCP records a condition precedent on a deal. Numbering comes from
// the deal's counter and is never reused. Conditions default to
// mandatory; only mandatory ones gate completion.
func (s *ConditionService) AddCP(ctx context.Context, dealID uuid.UUID, req *AddCPRequest) (*models.DealCP, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	mandatory := true
	if req.IsMandatory != nil {
		mandatory = *req.IsMandatory
	}

	cp := &models.DealCP{
		DealID:         dealID,
		Title:          req.Title,
		Description:    req.Description,
		IsMandatory:    mandatory,
		OwnerPartyType: req.OwnerPartyType,
		Status:         models.CPPending,
	}

	cp, err = s.cpRepo.CreateWithNumber(ctx, cp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create condition precedent")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Int("cp_number", cp.CPNumber).
		Str("title", cp.Title).
		Msg("Condition precedent added")

	s.audit.Record(ctx, dealID, models.AuditCPAdded, req.ActorRef, map[string]interface{}{
		"cp_number":    cp.CPNumber,
		"title":        cp.Title,
		"is_mandatory": cp.IsMandatory,
	})

	return cp, nil
}

// SatisfyCP marks a condition precedent satisfied, optionally linking
// the evidencing document.
func (s *ConditionService) SatisfyCP(ctx context.Context, cpID uuid.UUID, actorRef, documentRef string) (*models.DealCP, error) {
	cp, err := s.cpRepo.GetByID(ctx, cpID)
	if err != nil {
		return nil, err
	}
	switch cp.Status {
	case models.CPPending, models.CPRejected:
	default:
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	cp.Status = models.CPSatisfied
	cp.SatisfiedBy = actorRef
	cp.SatisfiedAt = &now
	cp.RejectionReason = ""

	cp, err = s.cpRepo.Update(ctx, cp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to satisfy condition precedent")
	}

	if documentRef != "" {
		_, err = s.threadRepo.CreateDocumentLink(ctx, &models.DealDocumentLink{
			DealID:      cp.DealID,
			OwnerType:   "cp",
			OwnerID:     cp.ID,
			DocumentRef: documentRef,
			Category:    "cp_evidence",
			UploadedBy:  actorRef,
		})
		if err != nil {
			log.Warn().Err(err).Str("cp_id", cp.ID.String()).Msg("Failed to link CP evidence document")
		}
	}

	s.metrics.IncrementCounter(metrics.CounterCPsSatisfied)
	s.audit.Record(ctx, cp.DealID, models.AuditCPSatisfied, actorRef, map[string]interface{}{
		"cp_number": cp.CPNumber,
		"title":     cp.Title,
	})

	s.recomputeForDeal(ctx, cp.DealID)
	return cp, nil
}

// RejectCP sends a condition precedent back with a reason; the owner
// must resubmit.
func (s *ConditionService) RejectCP(ctx context.Context, cpID uuid.UUID, actorRef, reason string) (*models.DealCP, error) {
	cp, err := s.cpRepo.GetByID(ctx, cpID)
	if err != nil {
		return nil, err
	}
	switch cp.Status {
	case models.CPPending, models.CPSatisfied:
	default:
		return nil, ErrInvalidTransition
	}

	cp.Status = models.CPRejected
	cp.RejectionReason = reason
	cp.SatisfiedBy = ""
	cp.SatisfiedAt = nil

	cp, err = s.cpRepo.Update(ctx, cp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reject condition precedent")
	}

	s.audit.Record(ctx, cp.DealID, models.AuditCPRejected, actorRef, map[string]interface{}{
		"cp_number": cp.CPNumber,
		"title":     cp.Title,
		"reason":    reason,
	})

	s.recomputeForDeal(ctx, cp.DealID)
	return cp, nil
}

// WaiveCP waives a condition precedent. A waived CP counts as resolved
// for completion readiness.
func (s *ConditionService) WaiveCP(ctx context.Context, cpID uuid.UUID, actorRef string) (*models.DealCP, error) {
	cp, err := s.cpRepo.GetByID(ctx, cpID)
	if err != nil {
		return nil, err
	}
	switch cp.Status {
	case models.CPPending, models.CPRejected:
	default:
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	cp.Status = models.CPWaived
	cp.WaivedBy = actorRef
	cp.WaivedAt = &now

	cp, err = s.cpRepo.Update(ctx, cp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to waive condition precedent")
	}

	s.audit.Record(ctx, cp.DealID, models.AuditCPWaived, actorRef, map[string]interface{}{
		"cp_number": cp.CPNumber,
		"title":     cp.Title,
	})

	s.recomputeForDeal(ctx, cp.DealID)
	return cp, nil
}

// ListCPs lists a deal's conditions precedent
func (s *ConditionService) ListCPs(ctx context.Context, dealID uuid.UUID) ([]*models.DealCP, error) {
	return s.cpRepo.FindByDeal(ctx, dealID)
}

func (s *ConditionService) recomputeForDeal(ctx context.Context, dealID uuid.UUID) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		log.Error().Err(err).Str("deal_id", dealID.String()).Msg("Failed to load deal for readiness recompute")
		return
	}
	s.readiness.Recompute(ctx, deal)
}
