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

// msTransitions lists the legal monitoring surveyor track moves. The
// site visit steps may be skipped when the surveyor reviews on
// documents alone.
var msTransitions = map[models.MSReviewStatus][]models.MSReviewStatus{
	models.MSPending:            {models.MSUnderReview},
	models.MSUnderReview:        {models.MSSiteVisitScheduled, models.MSApproved, models.MSRejected},
	models.MSSiteVisitScheduled: {models.MSSiteVisitCompleted},
	models.MSSiteVisitCompleted: {models.MSApproved, models.MSRejected},
}

// DrawdownService owns the drawdown approval chains on development
// facilities
type DrawdownService struct {
	dealRepo     repository.DealRepository
	partyRepo    repository.PartyRepository
	drawdownRepo repository.DrawdownRepository
	readiness    *ReadinessService
	audit        *AuditRecorder
	notifier     *Notifier
	metrics      *metrics.Metrics
}

// NewDrawdownService creates a new drawdown service
func NewDrawdownService(
	dealRepo repository.DealRepository,
	partyRepo repository.PartyRepository,
	drawdownRepo repository.DrawdownRepository,
	readiness *ReadinessService,
	audit *AuditRecorder,
	notifier *Notifier,
	m *metrics.Metrics,
) *DrawdownService {
	return &DrawdownService{
		dealRepo:     dealRepo,
		partyRepo:    partyRepo,
		drawdownRepo: drawdownRepo,
		readiness:    readiness,
		audit:        audit,
		notifier:     notifier,
		metrics:      m,
	}
}

// RequestDrawdown opens a funds-release request. Only development
// facilities support drawdowns and only the borrower may request one.
// The sequence number comes from the deal's counter: strictly
// increasing, never recycled, so a resubmission after rejection is a
// new request with a fresh number.
func (s *DrawdownService) RequestDrawdown(ctx context.Context, dealID, requestedByID uuid.UUID, amount float64, purpose string) (*models.Drawdown, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}
	if deal.FacilityType != models.FacilityDevelopment {
		return nil, ErrDrawdownsNotSupported
	}
	if amount <= 0 {
		return nil, errors.New("drawdown amount must be positive")
	}

	requester, err := s.requireParty(ctx, dealID, requestedByID, models.PartyBorrower)
	if err != nil {
		return nil, err
	}

	dd := &models.Drawdown{
		DealID:               dealID,
		AmountRequested:      amount,
		Purpose:              purpose,
		MSReviewStatus:       models.MSPending,
		LenderApprovalStatus: models.LenderRequested,
		RequestedByID:        requestedByID,
	}

	dd, err = s.drawdownRepo.CreateWithSequence(ctx, dd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create drawdown")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Int("sequence", dd.SequenceNumber).
		Float64("amount", amount).
		Msg("Drawdown requested")

	s.metrics.IncrementCounter(metrics.CounterDrawdownsRequested)
	s.audit.Record(ctx, dealID, models.AuditDrawdownRequested, requester.PartyRef, map[string]interface{}{
		"sequence": dd.SequenceNumber,
		"amount":   amount,
	})
	s.notifier.Notify(ctx, NotificationEvent{
		DealID:      dealID,
		DealRef:     deal.DealRef,
		Event:       "drawdown_requested",
		Audience:    models.PartyMonitoringSurveyor,
		Description: fmt.Sprintf("Drawdown %d for %.2f requested on deal %s", dd.SequenceNumber, amount, deal.DealRef),
	})

	return dd, nil
}

// UpdateMSReview moves the monitoring surveyor track. Only the deal's
// active monitoring surveyor (acting for the lender) or an admin may
// move it. Reaching ms_approved automatically puts the lender track
// into review.
func (s *DrawdownService) UpdateMSReview(ctx context.Context, drawdownID, actorPartyID uuid.UUID, target models.MSReviewStatus, reason string) (*models.Drawdown, error) {
	dd, err := s.drawdownRepo.GetByID(ctx, drawdownID)
	if err != nil {
		return nil, err
	}

	actor, err := s.requireParty(ctx, dd.DealID, actorPartyID, models.PartyMonitoringSurveyor, models.PartyAdmin)
	if err != nil {
		return nil, err
	}
	if actor.PartyType == models.PartyMonitoringSurveyor && actor.ActingForParty != models.ActingForLender {
		return nil, ErrNotAuthorized
	}

	if !msTransitionAllowed(dd.MSReviewStatus, target) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	dd.MSReviewStatus = target
	switch target {
	case models.MSSiteVisitScheduled:
		dd.SiteVisitScheduledFor = &now
	case models.MSSiteVisitCompleted:
		dd.SiteVisitCompletedAt = &now
	case models.MSApproved:
		dd.MSReviewedBy = actor.PartyRef
		dd.MSReviewedAt = &now
		dd.LenderApprovalStatus = models.LenderReview
	case models.MSRejected:
		dd.MSReviewedBy = actor.PartyRef
		dd.MSReviewedAt = &now
		dd.MSRejectionReason = reason
	}

	dd, err = s.drawdownRepo.Update(ctx, dd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update drawdown review")
	}

	s.audit.Record(ctx, dd.DealID, models.AuditDrawdownMSUpdated, actor.PartyRef, map[string]interface{}{
		"sequence": dd.SequenceNumber,
		"status":   target,
		"reason":   reason,
	})

	if target == models.MSApproved {
		s.notifyDeal(ctx, dd.DealID, NotificationEvent{
			Event:       "drawdown_ms_approved",
			Audience:    models.PartyLender,
			Description: fmt.Sprintf("Drawdown %d cleared monitoring surveyor review", dd.SequenceNumber),
		})
	}

	return dd, nil
}

// ApproveDrawdown is the lender's approval. The monitoring surveyor
// track must already be ms_approved: the gate is absolute, an admin
// cannot bypass it either.
func (s *DrawdownService) ApproveDrawdown(ctx context.Context, drawdownID, actorPartyID uuid.UUID) (*models.Drawdown, error) {
	dd, err := s.drawdownRepo.GetByID(ctx, drawdownID)
	if err != nil {
		return nil, err
	}

	actor, err := s.requireParty(ctx, dd.DealID, actorPartyID, models.PartyLender, models.PartyAdmin)
	if err != nil {
		return nil, err
	}

	if dd.MSReviewStatus != models.MSApproved {
		return nil, ErrMSApprovalRequired
	}
	if dd.LenderApprovalStatus != models.LenderReview {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	dd.LenderApprovalStatus = models.LenderApproved
	dd.LenderReviewedBy = actor.PartyRef
	dd.LenderApprovedAt = &now

	dd, err = s.drawdownRepo.Update(ctx, dd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to approve drawdown")
	}

	log.Info().
		Str("deal_id", dd.DealID.String()).
		Int("sequence", dd.SequenceNumber).
		Msg("Drawdown approved by lender")

	s.metrics.IncrementCounter(metrics.CounterDrawdownsApproved)
	s.audit.Record(ctx, dd.DealID, models.AuditDrawdownApproved, actor.PartyRef, map[string]interface{}{
		"sequence": dd.SequenceNumber,
		"amount":   dd.AmountRequested,
	})
	s.notifyDeal(ctx, dd.DealID, NotificationEvent{
		Event:       "drawdown_approved",
		Audience:    models.PartyBorrower,
		Description: fmt.Sprintf("Drawdown %d approved", dd.SequenceNumber),
	})

	return dd, nil
}

// RejectDrawdown is the lender's rejection, allowed any time before
// payment. The borrower may resubmit as a new drawdown.
func (s *DrawdownService) RejectDrawdown(ctx context.Context, drawdownID, actorPartyID uuid.UUID, reason string) (*models.Drawdown, error) {
	dd, err := s.drawdownRepo.GetByID(ctx, drawdownID)
	if err != nil {
		return nil, err
	}

	actor, err := s.requireParty(ctx, dd.DealID, actorPartyID, models.PartyLender, models.PartyAdmin)
	if err != nil {
		return nil, err
	}

	switch dd.LenderApprovalStatus {
	case models.LenderRequested, models.LenderReview, models.LenderApproved:
	default:
		return nil, ErrInvalidTransition
	}

	dd.LenderApprovalStatus = models.LenderRejected
	dd.LenderReviewedBy = actor.PartyRef
	dd.LenderRejectionReason = reason

	dd, err = s.drawdownRepo.Update(ctx, dd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reject drawdown")
	}

	s.audit.Record(ctx, dd.DealID, models.AuditDrawdownRejected, actor.PartyRef, map[string]interface{}{
		"sequence": dd.SequenceNumber,
		"reason":   reason,
	})
	s.notifyDeal(ctx, dd.DealID, NotificationEvent{
		Event:       "drawdown_rejected",
		Audience:    models.PartyBorrower,
		Description: fmt.Sprintf("Drawdown %d rejected: %s", dd.SequenceNumber, reason),
	})

	return dd, nil
}

// MarkPaid records the funds release of an approved drawdown.
func (s *DrawdownService) MarkPaid(ctx context.Context, drawdownID, actorPartyID uuid.UUID) (*models.Drawdown, error) {
	dd, err := s.drawdownRepo.GetByID(ctx, drawdownID)
	if err != nil {
		return nil, err
	}

	actor, err := s.requireParty(ctx, dd.DealID, actorPartyID, models.PartyLender, models.PartyAdmin)
	if err != nil {
		return nil, err
	}

	if dd.LenderApprovalStatus != models.LenderApproved {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	dd.LenderApprovalStatus = models.LenderPaid
	dd.PaidAt = &now

	dd, err = s.drawdownRepo.Update(ctx, dd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to mark drawdown paid")
	}

	s.audit.Record(ctx, dd.DealID, models.AuditDrawdownPaid, actor.PartyRef, map[string]interface{}{
		"sequence": dd.SequenceNumber,
		"amount":   dd.AmountRequested,
	})

	return dd, nil
}

// AddDocument attaches supporting evidence (progress reports, photos,
// building control sign-off) to a drawdown.
func (s *DrawdownService) AddDocument(ctx context.Context, drawdownID uuid.UUID, category models.DrawdownDocumentCategory, documentRef, uploadedBy string) (*models.DrawdownDocument, error) {
	if _, err := s.drawdownRepo.GetByID(ctx, drawdownID); err != nil {
		return nil, err
	}

	doc := &models.DrawdownDocument{
		DrawdownID:  drawdownID,
		Category:    category,
		DocumentRef: documentRef,
		UploadedBy:  uploadedBy,
	}

	return s.drawdownRepo.AddDocument(ctx, doc)
}

// ListDrawdowns lists a deal's drawdowns in sequence order
func (s *DrawdownService) ListDrawdowns(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error) {
	return s.drawdownRepo.FindByDeal(ctx, dealID)
}

// ListInFlight returns the deal's drawdowns that are still moving
// through either approval track, in sequence order.
func (s *DrawdownService) ListInFlight(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error) {
	return s.drawdownRepo.FindInFlight(ctx, dealID)
}

// requireParty loads the acting party and verifies it is active on the
// deal with one of the allowed types.
func (s *DrawdownService) requireParty(ctx context.Context, dealID, partyID uuid.UUID, allowed ...models.PartyType) (*models.DealParty, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	if party.DealID != dealID || party.AppointmentStatus != models.AppointmentActive {
		return nil, ErrNotAuthorized
	}
	for _, t := range allowed {
		if party.PartyType == t {
			return party, nil
		}
	}
	return nil, ErrNotAuthorized
}

func (s *DrawdownService) notifyDeal(ctx context.Context, dealID uuid.UUID, event NotificationEvent) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		log.Warn().Err(err).Str("deal_id", dealID.String()).Msg("Failed to load deal for notification")
		return
	}
	event.DealID = dealID
	event.DealRef = deal.DealRef
	s.notifier.Notify(ctx, event)
}

func msTransitionAllowed(from, to models.MSReviewStatus) bool {
	for _, t := range msTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
