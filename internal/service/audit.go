package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/search"
)

// AuditRecorder appends audit events and exports them to the reporting
// index. Recording is best effort from the caller's point of view: a
// failed append is logged and never fails the operation that produced
// the event.
type AuditRecorder struct {
	auditRepo repository.AuditRepository
	dealRepo  repository.DealRepository
	elastic   *search.ElasticClient
	metrics   *metrics.Metrics
}

// NewAuditRecorder creates a new audit recorder
func NewAuditRecorder(
	auditRepo repository.AuditRepository,
	dealRepo repository.DealRepository,
	elastic *search.ElasticClient,
	m *metrics.Metrics,
) *AuditRecorder {
	return &AuditRecorder{
		auditRepo: auditRepo,
		dealRepo:  dealRepo,
		elastic:   elastic,
		metrics:   m,
	}
}

// Record appends an audit event with the given metadata. Failures are
// logged and swallowed.
func (a *AuditRecorder) Record(ctx context.Context, dealID uuid.UUID, eventType models.AuditEventType, actorRef string, metadata map[string]interface{}) {
	event := &models.AuditEvent{
		DealID:    dealID,
		EventType: eventType,
		ActorRef:  actorRef,
	}

	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			log.Error().Err(err).
				Str("deal_id", dealID.String()).
				Str("event_type", string(eventType)).
				Msg("Failed to marshal audit metadata")
		} else {
			event.Metadata = data
		}
	}

	if _, err := a.auditRepo.Append(ctx, event); err != nil {
		log.Error().Err(err).
			Str("deal_id", dealID.String()).
			Str("event_type", string(eventType)).
			Msg("Failed to append audit event")
	}
}

// History returns a deal's audit trail in chronological order.
func (a *AuditRecorder) History(ctx context.Context, dealID uuid.UUID) ([]*models.AuditEvent, error) {
	return a.auditRepo.FindByDeal(ctx, dealID, nil)
}

// Search queries the reporting index across deals, newest first. Empty
// filters match everything.
func (a *AuditRecorder) Search(ctx context.Context, dealRef string, eventType models.AuditEventType, size int) ([]map[string]interface{}, error) {
	if !a.elastic.Enabled() {
		return nil, ErrSearchUnavailable
	}
	if size <= 0 {
		size = 50
	}

	var must []map[string]interface{}
	if dealRef != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"deal_ref": dealRef},
		})
	}
	if eventType != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"event_type": string(eventType)},
		})
	}

	query := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	if len(must) > 0 {
		query["query"] = map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		}
	}

	return a.elastic.SearchAuditEvents(ctx, query)
}

// ReconcileIndex exports unprocessed audit events to the reporting
// index. Events that fail to index stay unprocessed and are retried on
// the next run.
func (a *AuditRecorder) ReconcileIndex(ctx context.Context, batchSize int) error {
	if !a.elastic.Enabled() {
		log.Warn().Msg("Audit index export skipped, Elasticsearch is not configured")
		return nil
	}

	events, err := a.auditRepo.FindUnprocessed(ctx, batchSize)
	if err != nil {
		return errors.Wrap(err, "failed to load unprocessed audit events")
	}

	if len(events) == 0 {
		return nil
	}

	log.Info().Msgf("Found %d unprocessed audit events for export", len(events))

	dealRefs := make(map[uuid.UUID]string)
	var indexed []uuid.UUID
	for _, event := range events {
		dealRef, ok := dealRefs[event.DealID]
		if !ok {
			deal, err := a.dealRepo.GetByID(ctx, event.DealID)
			if err != nil {
				log.Error().Err(err).
					Str("event_id", event.ID.String()).
					Msg("Failed to resolve deal for audit event")
				continue
			}
			dealRef = deal.DealRef
			dealRefs[event.DealID] = dealRef
		}

		if err := a.elastic.IndexAuditEvent(ctx, event, dealRef); err != nil {
			log.Error().Err(err).
				Str("event_id", event.ID.String()).
				Msg("Failed to index audit event")
			continue
		}
		indexed = append(indexed, event.ID)
	}

	if err := a.auditRepo.MarkProcessed(ctx, indexed); err != nil {
		return errors.Wrap(err, "failed to mark audit events processed")
	}

	a.metrics.IncrementCounterBy(metrics.CounterAuditEventsIndexed, int64(len(indexed)))
	return nil
}
