package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
)

// InvitePartyRequest carries a party invitation.
type InvitePartyRequest struct {
	PartyRef           string           `json:"party_ref" binding:"required"`
	PartyType          models.PartyType `json:"party_type" binding:"required,party_type"`
	ActingFor          models.ActingFor `json:"acting_for" binding:"omitempty,acting_for"`
	FirmName           string           `json:"firm_name"`
	RegistrationNumber string           `json:"registration_number"`
	ActorRef           string           `json:"actor_ref"`
}

// PartyService owns party appointments and the lender solicitor
// replacement flow
type PartyService struct {
	dealRepo  repository.DealRepository
	partyRepo repository.PartyRepository
	readiness *ReadinessService
	audit     *AuditRecorder
	notifier  *Notifier
}

// NewPartyService creates a new party service
func NewPartyService(
	dealRepo repository.DealRepository,
	partyRepo repository.PartyRepository,
	readiness *ReadinessService,
	audit *AuditRecorder,
	notifier *Notifier,
) *PartyService {
	return &PartyService{
		dealRepo:  dealRepo,
		partyRepo: partyRepo,
		readiness: readiness,
		audit:     audit,
		notifier:  notifier,
	}
}

// InviteParty invites a party onto a deal. Consultant roles (valuer,
// monitoring surveyor, solicitor) must state which side they act for.
func (s *PartyService) InviteParty(ctx context.Context, dealID uuid.UUID, req *InvitePartyRequest) (*models.DealParty, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	if models.ConsultantPartyTypes[req.PartyType] && req.ActingFor == "" {
		return nil, ErrConsultantSideRequired
	}

	// The active lender solicitor slot must be vacated (removal or an
	// explicit replacement) before another lender-side solicitor can be
	// brought in.
	if req.PartyType == models.PartySolicitor && req.ActingFor == models.ActingForLender {
		if _, err := s.partyRepo.GetActiveLenderSolicitor(ctx, dealID); err == nil {
			return nil, ErrLenderSolicitorTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	party := &models.DealParty{
		DealID:             dealID,
		PartyRef:           req.PartyRef,
		PartyType:          req.PartyType,
		ActingForParty:     req.ActingFor,
		AppointmentStatus:  models.AppointmentInvited,
		FirmName:           req.FirmName,
		RegistrationNumber: req.RegistrationNumber,
		InvitedAt:          &now,
	}

	party, err = s.partyRepo.Create(ctx, party)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create party")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Str("party_ref", party.PartyRef).
		Str("party_type", string(party.PartyType)).
		Msg("Party invited")

	s.audit.Record(ctx, dealID, models.AuditPartyInvited, req.ActorRef, map[string]interface{}{
		"party_ref":  party.PartyRef,
		"party_type": party.PartyType,
		"acting_for": party.ActingForParty,
	})

	s.notifier.Notify(ctx, NotificationEvent{
		DealID:      dealID,
		DealRef:     deal.DealRef,
		Event:       "party_invited",
		Audience:    party.PartyType,
		Description: fmt.Sprintf("%s invited to deal %s", party.PartyType, deal.DealRef),
	})

	return party, nil
}

// ConfirmParty accepts an invitation. Most roles become active at once;
// a solicitor acting for the lender only reaches confirmed and must be
// activated explicitly, because activation may displace the current
// active lender solicitor.
func (s *PartyService) ConfirmParty(ctx context.Context, partyID uuid.UUID, actorRef string) (*models.DealParty, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	switch party.AppointmentStatus {
	case models.AppointmentInvited, models.AppointmentPendingConfirmation:
	default:
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	party.ConfirmedAt = &now
	if party.PartyType == models.PartySolicitor && party.ActingForParty == models.ActingForLender {
		party.AppointmentStatus = models.AppointmentConfirmed
	} else {
		party.AppointmentStatus = models.AppointmentActive
	}

	party, err = s.partyRepo.Update(ctx, party)
	if err != nil {
		return nil, errors.Wrap(err, "failed to confirm party")
	}

	s.audit.Record(ctx, party.DealID, models.AuditPartyConfirmed, actorRef, map[string]interface{}{
		"party_ref":  party.PartyRef,
		"party_type": party.PartyType,
		"status":     party.AppointmentStatus,
	})

	s.recomputeForDeal(ctx, party.DealID)
	return party, nil
}

// ActivateLenderSolicitor makes a confirmed lender-side solicitor the
// deal's active one. At most one party holds that position; a current
// holder is removed with the given reason as part of the same swap.
func (s *PartyService) ActivateLenderSolicitor(ctx context.Context, dealID, partyID uuid.UUID, actorRef, reason string) (*models.DealParty, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.DealID != dealID {
		return nil, repository.ErrNotFound
	}
	if party.PartyType != models.PartySolicitor || party.ActingForParty != models.ActingForLender {
		return nil, ErrNotAuthorized
	}
	switch party.AppointmentStatus {
	case models.AppointmentConfirmed, models.AppointmentActive:
	default:
		return nil, ErrInvalidTransition
	}

	if holder, err := s.partyRepo.GetActiveLenderSolicitor(ctx, dealID); err == nil {
		if holder.ID != partyID && reason == "" {
			return nil, ErrReplacementReason
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	activated, replaced, err := s.partyRepo.ActivateLenderSolicitor(ctx, dealID, partyID, reason)
	if err != nil {
		return nil, errors.Wrap(err, "failed to activate lender solicitor")
	}

	if replaced != nil {
		log.Info().
			Str("deal_id", dealID.String()).
			Str("activated", activated.PartyRef).
			Str("replaced", replaced.PartyRef).
			Msg("Active lender solicitor replaced")

		s.audit.Record(ctx, dealID, models.AuditSolicitorReplaced, actorRef, map[string]interface{}{
			"activated_ref": activated.PartyRef,
			"replaced_ref":  replaced.PartyRef,
			"reason":        reason,
		})
	} else {
		s.audit.Record(ctx, dealID, models.AuditPartyConfirmed, actorRef, map[string]interface{}{
			"party_ref": activated.PartyRef,
			"status":    models.AppointmentActive,
		})
	}

	s.recomputeForDeal(ctx, dealID)
	return activated, nil
}

// RemoveParty removes a party from a deal with a reason. A removed
// active lender solicitor leaves the position vacant until a
// replacement is activated.
func (s *PartyService) RemoveParty(ctx context.Context, partyID uuid.UUID, actorRef, reason string) (*models.DealParty, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.AppointmentStatus == models.AppointmentRemoved {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	party.AppointmentStatus = models.AppointmentRemoved
	party.IsActiveLenderSolicitor = false
	party.RemovedAt = &now
	party.RemovalReason = reason

	party, err = s.partyRepo.Update(ctx, party)
	if err != nil {
		return nil, errors.Wrap(err, "failed to remove party")
	}

	s.audit.Record(ctx, party.DealID, models.AuditPartyRemoved, actorRef, map[string]interface{}{
		"party_ref":  party.PartyRef,
		"party_type": party.PartyType,
		"reason":     reason,
	})

	s.recomputeForDeal(ctx, party.DealID)
	return party, nil
}

// ListParties lists a deal's parties
func (s *PartyService) ListParties(ctx context.Context, dealID uuid.UUID) ([]*models.DealParty, error) {
	return s.partyRepo.FindByDeal(ctx, dealID)
}

func (s *PartyService) recomputeForDeal(ctx context.Context, dealID uuid.UUID) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		log.Error().Err(err).Str("deal_id", dealID.String()).Msg("Failed to load deal for readiness recompute")
		return
	}
	s.readiness.Recompute(ctx, deal)
}
