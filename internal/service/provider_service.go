package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/workflow"
)

// ProviderService owns provider selections and the deliverable review
// cycle. Approved deliverables feed stage criteria and readiness.
type ProviderService struct {
	dealRepo     repository.DealRepository
	partyRepo    repository.PartyRepository
	providerRepo repository.ProviderRepository
	readiness    *ReadinessService
	audit        *AuditRecorder
}

// NewProviderService creates a new provider service
func NewProviderService(
	dealRepo repository.DealRepository,
	partyRepo repository.PartyRepository,
	providerRepo repository.ProviderRepository,
	readiness *ReadinessService,
	audit *AuditRecorder,
) *ProviderService {
	return &ProviderService{
		dealRepo:     dealRepo,
		partyRepo:    partyRepo,
		providerRepo: providerRepo,
		readiness:    readiness,
		audit:        audit,
	}
}

// InstructProvider appoints a provider for a role and starts its stage
// sequence. The linked party must be an active consultant of the
// matching type.
func (s *ProviderService) InstructProvider(ctx context.Context, dealID uuid.UUID, role models.ProviderRole, partyID uuid.UUID, actorRef string) (*models.DealProviderSelection, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.DealID != dealID || string(party.PartyType) != string(role) {
		return nil, ErrNotAuthorized
	}

	stages := workflow.ProviderTemplates(role)
	if len(stages) == 0 {
		return nil, errors.Errorf("unknown provider role %q", role)
	}

	now := time.Now()
	sel := &models.DealProviderSelection{
		DealID:       dealID,
		Role:         role,
		PartyID:      &partyID,
		Status:       models.SelectionInstructed,
		CurrentStage: stages[0].Key,
		InstructedAt: &now,
	}

	sel, err = s.providerRepo.CreateSelection(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create provider selection")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Str("role", string(role)).
		Str("party_ref", party.PartyRef).
		Msg("Provider instructed")

	return sel, nil
}

// AdvanceProviderStage moves a provider to the next stage of its own
// sequence. Reaching the last stage completes the selection.
func (s *ProviderService) AdvanceProviderStage(ctx context.Context, selectionID uuid.UUID, actorRef string) (*models.DealProviderSelection, error) {
	sel, err := s.providerRepo.GetSelection(ctx, selectionID)
	if err != nil {
		return nil, err
	}
	switch sel.Status {
	case models.SelectionInstructed, models.SelectionActive:
	default:
		return nil, ErrInvalidTransition
	}

	next := workflow.NextProviderStage(sel.Role, sel.CurrentStage)
	if next == "" {
		return nil, ErrInvalidTransition
	}

	sel.CurrentStage = next
	sel.Status = models.SelectionActive

	stages := workflow.ProviderTemplates(sel.Role)
	if next == stages[len(stages)-1].Key {
		now := time.Now()
		sel.Status = models.SelectionCompleted
		sel.CompletedAt = &now
	}

	return s.providerRepo.UpdateSelection(ctx, sel)
}

// SubmitDeliverable records a provider work product for review.
func (s *ProviderService) SubmitDeliverable(ctx context.Context, selectionID uuid.UUID, dType models.DeliverableType, documentRef, actorRef string) (*models.ProviderDeliverable, error) {
	sel, err := s.providerRepo.GetSelection(ctx, selectionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	d := &models.ProviderDeliverable{
		DealID:          sel.DealID,
		SelectionID:     sel.ID,
		Role:            sel.Role,
		DeliverableType: dType,
		Status:          models.DeliverableSubmitted,
		DocumentRef:     documentRef,
		SubmittedAt:     &now,
	}

	d, err = s.providerRepo.CreateDeliverable(ctx, d)
	if err != nil {
		return nil, errors.Wrap(err, "failed to submit deliverable")
	}

	log.Info().
		Str("deal_id", sel.DealID.String()).
		Str("role", string(sel.Role)).
		Str("type", string(dType)).
		Msg("Deliverable submitted")

	return d, nil
}

// ReviewDeliverable approves or rejects a submitted deliverable.
// Approval feeds stage entry and exit criteria; rejection requires a
// reason and a resubmission.
func (s *ProviderService) ReviewDeliverable(ctx context.Context, deliverableID uuid.UUID, approve bool, actorRef, reason string) (*models.ProviderDeliverable, error) {
	d, err := s.providerRepo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DeliverableSubmitted {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	d.ReviewedBy = actorRef
	d.ReviewedAt = &now
	if approve {
		d.Status = models.DeliverableApproved
	} else {
		if reason == "" {
			return nil, errors.New("rejection requires a reason")
		}
		d.Status = models.DeliverableRejected
		d.RejectionReason = reason
	}

	d, err = s.providerRepo.UpdateDeliverable(ctx, d)
	if err != nil {
		return nil, errors.Wrap(err, "failed to review deliverable")
	}

	s.audit.Record(ctx, d.DealID, models.AuditDeliverableReviewed, actorRef, map[string]interface{}{
		"role":     d.Role,
		"type":     d.DeliverableType,
		"approved": approve,
		"reason":   reason,
	})

	if approve {
		if deal, err := s.dealRepo.GetByID(ctx, d.DealID); err == nil {
			s.readiness.Recompute(ctx, deal)
		}
	}

	return d, nil
}

// ListSelections lists a deal's provider selections
func (s *ProviderService) ListSelections(ctx context.Context, dealID uuid.UUID) ([]*models.DealProviderSelection, error) {
	return s.providerRepo.FindSelectionsByDeal(ctx, dealID)
}

// ListDeliverables lists a deal's deliverables
func (s *ProviderService) ListDeliverables(ctx context.Context, dealID uuid.UUID) ([]*models.ProviderDeliverable, error) {
	return s.providerRepo.FindDeliverablesByDeal(ctx, dealID)
}
