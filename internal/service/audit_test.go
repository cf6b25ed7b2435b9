package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuildFund/New-Main-sub000/config"
	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/search"

	"github.com/google/uuid"
)

func testElasticClient(t *testing.T) *search.ElasticClient {
	t.Helper()
	client, err := search.NewElasticClient(config.ElasticConfig{URL: "http://localhost:9200"})
	require.NoError(t, err)
	return client
}

func TestRecordSerializesMetadata(t *testing.T) {
	dealID := uuid.New()

	captured := new(models.AuditEvent)
	auditRepo := new(MockAuditRepository)
	auditRepo.On("Append", mock.Anything, mock.AnythingOfType("*models.AuditEvent")).
		Run(func(args mock.Arguments) { *captured = *(args.Get(1).(*models.AuditEvent)) }).
		Return(captured, nil)

	rec := &AuditRecorder{auditRepo: auditRepo, metrics: metrics.NewMetrics()}
	rec.Record(context.Background(), dealID, models.AuditStageCompleted, "admin", map[string]interface{}{
		"stage_number": 3,
	})

	require.Equal(t, dealID, captured.DealID)
	require.Equal(t, models.AuditStageCompleted, captured.EventType)
	require.Equal(t, "admin", captured.ActorRef)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(captured.Metadata, &meta))
	require.Equal(t, float64(3), meta["stage_number"])
}

func TestRecordSwallowsAppendFailure(t *testing.T) {
	auditRepo := new(MockAuditRepository)
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	rec := &AuditRecorder{auditRepo: auditRepo, metrics: metrics.NewMetrics()}

	// Recording is best effort; the caller never sees the failure.
	rec.Record(context.Background(), uuid.New(), models.AuditDealCreated, "admin", nil)

	auditRepo.AssertExpectations(t)
}

func TestReconcileIndexNothingPending(t *testing.T) {
	auditRepo := new(MockAuditRepository)
	auditRepo.On("FindUnprocessed", mock.Anything, 200).Return([]*models.AuditEvent{}, nil)

	rec := &AuditRecorder{auditRepo: auditRepo, elastic: testElasticClient(t), metrics: metrics.NewMetrics()}

	require.NoError(t, rec.ReconcileIndex(context.Background(), 200))
	auditRepo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestReconcileIndexPropagatesLoadFailure(t *testing.T) {
	auditRepo := new(MockAuditRepository)
	auditRepo.On("FindUnprocessed", mock.Anything, 200).Return(nil, errors.New("db down"))

	rec := &AuditRecorder{auditRepo: auditRepo, elastic: testElasticClient(t), metrics: metrics.NewMetrics()}

	require.Error(t, rec.ReconcileIndex(context.Background(), 200))
}

func TestReconcileIndexSkipsWithoutElasticsearch(t *testing.T) {
	auditRepo := new(MockAuditRepository)

	rec := &AuditRecorder{auditRepo: auditRepo, metrics: metrics.NewMetrics()}

	// A deployment without a configured cluster must not panic or touch
	// the unprocessed queue; events wait until the exporter comes back.
	require.NoError(t, rec.ReconcileIndex(context.Background(), 200))
	auditRepo.AssertNotCalled(t, "FindUnprocessed", mock.Anything, mock.Anything)
}

func TestSearchRequiresElasticsearch(t *testing.T) {
	rec := &AuditRecorder{auditRepo: new(MockAuditRepository), metrics: metrics.NewMetrics()}

	_, err := rec.Search(context.Background(), "BF-2026-aaaa", models.AuditDealCreated, 10)
	require.ErrorIs(t, err, ErrSearchUnavailable)
}
