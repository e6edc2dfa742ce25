package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/anvayaclinic/clinicstock-backend/pkg/config"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	"github.com/anvayaclinic/clinicstock-backend/pkg/logger"
)

type fakeRepo struct {
	events          []models.OutboxEvent
	fetchedLimit    int
	fetchedAttempts int
	published       []uuid.UUID
	failed          map[uuid.UUID]error
}

func newFakeRepo(events ...models.OutboxEvent) *fakeRepo {
	return &fakeRepo{events: events, failed: map[uuid.UUID]error{}}
}

func (f *fakeRepo) FetchUnpublishedForPublish(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	f.fetchedLimit = limit
	f.fetchedAttempts = maxAttempts
	return f.events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, cause error) error {
	f.failed[id] = cause
	return nil
}

type fakePinger struct{}

func (fakePinger) Ping(context.Context) error { return nil }

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error               { return nil }
func (fakePubSub) InventoryPublisher() *gcppubsub.Publisher { return nil }

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	failOn   map[string]error
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if err, ok := p.failOn[msg.Attributes["aggregate_id"]]; ok {
		return fakeResult{err: err}
	}
	return fakeResult{}
}

func outboxEvent(t *testing.T, eventType enums.OutboxEventType) models.OutboxEvent {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"version": 1})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateTransfer,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Config: &config.Config{
			Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 5},
		},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test"}),
		DB:         fakePinger{},
		PubSub:     fakePubSub{},
		Repository: repo,
		PublisherFactory: func() publisher {
			return pub
		},
	})
	require.NoError(t, err)
	return svc
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	first := outboxEvent(t, enums.EventMedicineTransferred)
	second := outboxEvent(t, enums.EventPurchaseCommitted)
	repo := newFakeRepo(first, second)
	pub := &fakePublisher{}

	svc := newTestService(t, repo, pub)
	published, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, published)

	require.Equal(t, 10, repo.fetchedLimit)
	require.Equal(t, 5, repo.fetchedAttempts)
	require.Equal(t, []uuid.UUID{first.ID, second.ID}, repo.published)

	require.Len(t, pub.messages, 2)
	require.Equal(t, string(enums.EventMedicineTransferred), pub.messages[0].Attributes["event_type"])
	require.Equal(t, string(enums.AggregateTransfer), pub.messages[0].Attributes["aggregate_type"])
	require.JSONEq(t, `{"version":1}`, string(pub.messages[0].Data))
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	failing := outboxEvent(t, enums.EventMedicineTransferred)
	healthy := outboxEvent(t, enums.EventPurchaseRecorded)
	repo := newFakeRepo(failing, healthy)
	pub := &fakePublisher{
		failOn: map[string]error{
			failing.AggregateID.String(): errors.New("broker unavailable"),
		},
	}

	svc := newTestService(t, repo, pub)
	published, err := svc.processBatch(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, published)

	require.Equal(t, []uuid.UUID{healthy.ID}, repo.published)
	require.Contains(t, repo.failed, failing.ID)
}

func TestProcessBatchEmptyIsQuiet(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePublisher{})

	published, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, published)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePublisher{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
