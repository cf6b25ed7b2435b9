package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
)

// RequisitionService owns the legal requisition flow between the active
// lender solicitor and the borrower side
type RequisitionService struct {
	dealRepo  repository.DealRepository
	partyRepo repository.PartyRepository
	reqRepo   repository.RequisitionRepository
	readiness *ReadinessService
	audit     *AuditRecorder
	notifier  *Notifier
	metrics   *metrics.Metrics
}

// NewRequisitionService creates a new requisition service
func NewRequisitionService(
	dealRepo repository.DealRepository,
	partyRepo repository.PartyRepository,
	reqRepo repository.RequisitionRepository,
	readiness *ReadinessService,
	audit *AuditRecorder,
	notifier *Notifier,
	m *metrics.Metrics,
) *RequisitionService {
	return &RequisitionService{
		dealRepo:  dealRepo,
		partyRepo: partyRepo,
		reqRepo:   reqRepo,
		readiness: readiness,
		audit:     audit,
		notifier:  notifier,
		metrics:   m,
	}
}

// RaiseRequisition raises a formal legal query. Only the deal's active
// lender solicitor may raise one; the reference comes from the deal's
// counter and is never reused.
func (s *RequisitionService) RaiseRequisition(ctx context.Context, dealID, raisedByID uuid.UUID, question string) (*models.DealRequisition, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	raisedBy, err := s.partyRepo.GetByID(ctx, raisedByID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	if raisedBy.DealID != dealID || !raisedBy.IsActiveLenderSolicitor {
		return nil, ErrNotAuthorized
	}

	req := &models.DealRequisition{
		DealID:     dealID,
		Question:   question,
		Status:     models.RequisitionOpen,
		RaisedByID: raisedByID,
	}

	req, err = s.reqRepo.CreateWithReference(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to raise requisition")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Str("reference", req.Reference).
		Msg("Requisition raised")

	s.metrics.IncrementCounter(metrics.CounterRequisitionsRaised)
	s.audit.Record(ctx, dealID, models.AuditRequisitionRaised, raisedBy.PartyRef, map[string]interface{}{
		"reference": req.Reference,
	})
	s.notifier.Notify(ctx, NotificationEvent{
		DealID:      dealID,
		DealRef:     deal.DealRef,
		Event:       "requisition_raised",
		Audience:    models.PartyBorrower,
		Description: fmt.Sprintf("Requisition %s raised on deal %s", req.Reference, deal.DealRef),
	})

	s.recomputeForDeal(ctx, dealID)
	return req, nil
}

// RespondToRequisition records the borrower side's response.
func (s *RequisitionService) RespondToRequisition(ctx context.Context, reqID uuid.UUID, actorRef, response string) (*models.DealRequisition, error) {
	req, err := s.reqRepo.GetByID(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequisitionOpen && req.Status != models.RequisitionRejected {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	req.Status = models.RequisitionResponded
	req.ResponseText = response
	req.RespondedBy = actorRef
	req.RespondedAt = &now

	req, err = s.reqRepo.Update(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to respond to requisition")
	}

	s.audit.Record(ctx, req.DealID, models.AuditRequisitionAnswered, actorRef, map[string]interface{}{
		"reference": req.Reference,
	})

	return req, nil
}

// ApproveRequisition accepts the response and closes the query. Only
// the active lender solicitor may approve.
func (s *RequisitionService) ApproveRequisition(ctx context.Context, reqID, approverID uuid.UUID) (*models.DealRequisition, error) {
	req, err := s.reqRepo.GetByID(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequisitionResponded {
		return nil, ErrInvalidTransition
	}

	approver, err := s.partyRepo.GetByID(ctx, approverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	if approver.DealID != req.DealID || !approver.IsActiveLenderSolicitor {
		return nil, ErrNotAuthorized
	}

	now := time.Now()
	req.Status = models.RequisitionApproved
	req.ApprovedBy = approver.PartyRef
	req.ApprovedAt = &now
	req.ClosedAt = &now

	req, err = s.reqRepo.Update(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to approve requisition")
	}

	s.audit.Record(ctx, req.DealID, models.AuditRequisitionApproved, approver.PartyRef, map[string]interface{}{
		"reference": req.Reference,
	})

	s.recomputeForDeal(ctx, req.DealID)
	return req, nil
}

// RejectResponse sends a response back to the borrower side. The
// requisition reopens for another answer.
func (s *RequisitionService) RejectResponse(ctx context.Context, reqID, reviewerID uuid.UUID, reason string) (*models.DealRequisition, error) {
	req, err := s.reqRepo.GetByID(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequisitionResponded {
		return nil, ErrInvalidTransition
	}

	reviewer, err := s.partyRepo.GetByID(ctx, reviewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	if reviewer.DealID != req.DealID || !reviewer.IsActiveLenderSolicitor {
		return nil, ErrNotAuthorized
	}

	req.Status = models.RequisitionOpen
	req.ResponseText = fmt.Sprintf("%s\n[returned: %s]", req.ResponseText, reason)

	req, err = s.reqRepo.Update(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reject requisition response")
	}

	return req, nil
}

// ListRequisitions lists a deal's requisitions in reference order
func (s *RequisitionService) ListRequisitions(ctx context.Context, dealID uuid.UUID) ([]*models.DealRequisition, error) {
	return s.reqRepo.FindByDeal(ctx, dealID)
}

func (s *RequisitionService) recomputeForDeal(ctx context.Context, dealID uuid.UUID) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		log.Error().Err(err).Str("deal_id", dealID.String()).Msg("Failed to load deal for readiness recompute")
		return
	}
	s.readiness.Recompute(ctx, deal)
}
