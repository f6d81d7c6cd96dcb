package outbox

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/topup-storefront/pkg/logger"
)

// =============================================================================
// Моки
// =============================================================================

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, o *Outbox) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockRepository) GetUnprocessed(ctx context.Context, limit int) ([]*Outbox, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Outbox), args.Error(1)
}

func (m *mockRepository) MarkProcessed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepository) MarkFailed(ctx context.Context, id string, err error) error {
	args := m.Called(ctx, id, err)
	return args.Error(0)
}

func (m *mockRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Publish(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error {
	args := m.Called(ctx, eventType, key, value, extra)
	return args.Error(0)
}

func testConfig() WorkerConfig {
	return WorkerConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10, MaxRetries: 3}
}

// =============================================================================
// Worker
// =============================================================================

func TestWorker_SendsAndMarksProcessed(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	record := &Outbox{
		ID:            "ob-1",
		EventType:     "order.created",
		MessageKey:    "ORD-1",
		Payload:       []byte(`{"orderId":"ORD-1"}`),
		Headers:       map[string]string{"payment_method": "wallet"},
		TraceID:       "trace-1",
		CorrelationID: "corr-1",
	}

	withTrace := mock.MatchedBy(func(c context.Context) bool {
		return logger.TraceIDFromContext(c) == "trace-1" && logger.CorrelationIDFromContext(c) == "corr-1"
	})

	repo.On("GetUnprocessed", ctx, 10).Return([]*Outbox{record}, nil)
	sender.On("Publish", withTrace, "order.created", []byte("ORD-1"), record.Payload, record.Headers).Return(nil)
	repo.On("MarkProcessed", ctx, "ob-1").Return(nil)

	worker.ProcessBatch(ctx)

	sender.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestWorker_SendErrorMarksFailed(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	record := &Outbox{ID: "ob-1", EventType: "order.created", MessageKey: "ORD-1", Payload: []byte(`{}`)}
	sendErr := errors.New("kafka unavailable")

	sender.On("Publish", mock.Anything, "order.created", []byte("ORD-1"), record.Payload, mock.Anything).Return(sendErr)
	repo.On("MarkFailed", ctx, "ob-1", sendErr).Return(nil)

	err := worker.send(ctx, record)

	require.ErrorIs(t, err, sendErr)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestWorker_DeadLetter(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	dead := &Outbox{ID: "ob-dead", EventType: "order.created", MessageKey: "ORD-9", Payload: []byte(`{}`), RetryCount: 5}

	repo.On("GetUnprocessed", ctx, 10).Return([]*Outbox{dead}, nil)
	repo.On("MarkProcessed", ctx, "ob-dead").Return(nil)

	worker.ProcessBatch(ctx)

	repo.AssertExpectations(t)
	sender.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_BatchContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	first := &Outbox{ID: "ob-1", EventType: "order.created", MessageKey: "ORD-1", Payload: []byte(`{}`)}
	second := &Outbox{ID: "ob-2", EventType: "order.status.resolved", MessageKey: "ORD-2", Payload: []byte(`{}`)}
	sendErr := errors.New("broker down")

	repo.On("GetUnprocessed", ctx, 10).Return([]*Outbox{first, second}, nil)
	sender.On("Publish", mock.Anything, "order.created", mock.Anything, mock.Anything, mock.Anything).Return(sendErr)
	sender.On("Publish", mock.Anything, "order.status.resolved", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkFailed", ctx, "ob-1", sendErr).Return(nil)
	repo.On("MarkProcessed", ctx, "ob-2").Return(nil)

	worker.ProcessBatch(ctx)

	repo.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestWorker_BatchLogsFailedCount(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(logger.Config{Level: "debug", Output: buf})
	t.Cleanup(func() { logger.Init(logger.Config{Level: "info"}) })

	ctx := context.Background()
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	records := []*Outbox{
		{ID: "ob-1", EventType: "order.created", MessageKey: "ORD-1", Payload: []byte(`{}`)},
		{ID: "ob-2", EventType: "order.created", MessageKey: "ORD-2", Payload: []byte(`{}`)},
	}
	sendErr := errors.New("broker down")

	repo.On("GetUnprocessed", ctx, 10).Return(records, nil)
	sender.On("Publish", mock.Anything, "order.created", mock.Anything, mock.Anything, mock.Anything).Return(sendErr)
	repo.On("MarkFailed", ctx, mock.Anything, sendErr).Return(nil)

	worker.ProcessBatch(ctx)

	assert.Contains(t, buf.String(), `"failed":2`)
	assert.Contains(t, buf.String(), `"batch":2`)
	repo.AssertNumberOfCalls(t, "MarkFailed", 2)
}

func TestWorker_BatchWithoutFailuresNoWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(logger.Config{Level: "debug", Output: buf})
	t.Cleanup(func() { logger.Init(logger.Config{Level: "info"}) })

	ctx := context.Background()
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	record := &Outbox{ID: "ob-1", EventType: "order.created", MessageKey: "ORD-1", Payload: []byte(`{}`)}
	repo.On("GetUnprocessed", ctx, 10).Return([]*Outbox{record}, nil)
	sender.On("Publish", mock.Anything, "order.created", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkProcessed", ctx, "ob-1").Return(nil)

	worker.ProcessBatch(ctx)

	assert.NotContains(t, buf.String(), `"failed"`)
}

func TestWorker_ReadErrorStopsBatch(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	repo.On("GetUnprocessed", ctx, 10).Return(nil, errors.New("db down"))

	worker.ProcessBatch(ctx)

	sender.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	repo := new(mockRepository)
	sender := new(mockSender)
	worker := NewWorker(repo, sender, testConfig())

	repo.On("GetUnprocessed", mock.Anything, 10).Return([]*Outbox{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Worker не остановился после отмены контекста")
	}
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(nil, nil, WorkerConfig{})
	assert.Equal(t, DefaultWorkerConfig(), w.cfg)
}

// =============================================================================
// Publisher
// =============================================================================

func TestPublisher_StoresEventWithTraceIDs(t *testing.T) {
	repo := new(mockRepository)
	p := NewPublisher(repo)
	p.newID = func() string { return "ob-fixed" }

	ctx := logger.NewContextWithIDs(context.Background(), "trace-7", "corr-7")

	var saved *Outbox
	repo.On("Create", ctx, mock.AnythingOfType("*outbox.Outbox")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*Outbox) }).
		Return(nil)

	err := p.Publish(ctx, "order.created", []byte("ORD-1"), []byte(`{"a":1}`), map[string]string{"payment_method": "upi"})
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, "ob-fixed", saved.ID)
	assert.Equal(t, "order.created", saved.EventType)
	assert.Equal(t, "ORD-1", saved.MessageKey)
	assert.Equal(t, "trace-7", saved.TraceID)
	assert.Equal(t, "corr-7", saved.CorrelationID)
	assert.Equal(t, "upi", saved.Headers["payment_method"])
}

func TestPublisher_CreateError(t *testing.T) {
	repo := new(mockRepository)
	p := NewPublisher(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := p.Publish(context.Background(), "order.created", []byte("ORD-1"), []byte(`{}`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox")
}

func TestModel_HeadersRoundTrip(t *testing.T) {
	o := &Outbox{ID: "ob-1", Headers: map[string]string{"k": "v"}}
	back := ModelFromDomain(o).ToDomain()
	assert.Equal(t, o.Headers, back.Headers)

	empty := ModelFromDomain(&Outbox{ID: "ob-2"})
	assert.Nil(t, empty.Headers)
}
