package outbox

import (
	"context"
	"time"

	"example.com/topup-storefront/pkg/logger"
)

// Sender — отправка сообщения в брокер. Реализация: kafka.Producer.
type Sender interface {
	Publish(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error
}

// WorkerConfig — настройки Worker.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxRetries — после превышения запись выводится из очереди (dead letter).
	MaxRetries int
}

// DefaultWorkerConfig возвращает конфигурацию по умолчанию.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxRetries:   5,
	}
}

const (
	cleanupInterval  = time.Hour
	cleanupRetention = 7 * 24 * time.Hour
)

// Worker читает outbox и отправляет записи в Kafka (at-least-once).
type Worker struct {
	repo   Repository
	sender Sender
	cfg    WorkerConfig
}

// NewWorker создаёт Worker. Нулевые поля cfg заменяются значениями по умолчанию.
func NewWorker(repo Repository, sender Sender, cfg WorkerConfig) *Worker {
	def := DefaultWorkerConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return &Worker{repo: repo, sender: sender, cfg: cfg}
}

// Run блокирует выполнение до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().
		Dur("poll_interval", w.cfg.PollInterval).
		Int("batch_size", w.cfg.BatchSize).
		Msg("Запуск Outbox Worker")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Остановка Outbox Worker")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			w.cleanupProcessed(ctx)
		}
	}
}

func (w *Worker) cleanupProcessed(ctx context.Context) {
	log := logger.FromContext(ctx)

	deleted, err := w.repo.DeleteProcessedBefore(ctx, time.Now().Add(-cleanupRetention))
	if err != nil {
		log.Error().Err(err).Msg("Ошибка очистки outbox")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Очистка отправленных записей outbox")
	}
}

// ProcessBatch отправляет одну пачку неотправленных записей.
func (w *Worker) ProcessBatch(ctx context.Context) {
	log := logger.FromContext(ctx)

	records, err := w.repo.GetUnprocessed(ctx, w.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка чтения outbox")
		return
	}

	failed := 0
	defer func() {
		if failed > 0 {
			log.Warn().
				Int("failed", failed).
				Int("batch", len(records)).
				Msg("Часть записей outbox не отправлена, повтор в следующем цикле")
		}
	}()

	for _, record := range records {
		if ctx.Err() != nil {
			return
		}

		if record.RetryCount >= w.cfg.MaxRetries {
			log.Warn().
				Str("outbox_id", record.ID).
				Str("event_type", record.EventType).
				Str("order_id", record.MessageKey).
				Int("retry_count", record.RetryCount).
				Msg("Dead letter: превышен лимит попыток, запись выведена из очереди")

			if err := w.repo.MarkProcessed(ctx, record.ID); err != nil {
				log.Error().Err(err).Str("outbox_id", record.ID).Msg("Ошибка пометки dead letter")
			}
			continue
		}

		if err := w.send(ctx, record); err != nil {
			failed++
		}
	}
}

func (w *Worker) send(ctx context.Context, record *Outbox) error {
	// Заголовки трассировки берутся из запроса, породившего событие
	sendCtx := logger.NewContextWithIDs(ctx, record.TraceID, record.CorrelationID)
	log := logger.FromContext(sendCtx)

	if err := w.sender.Publish(sendCtx, record.EventType, []byte(record.MessageKey), record.Payload, record.Headers); err != nil {
		if markErr := w.repo.MarkFailed(ctx, record.ID, err); markErr != nil {
			log.Error().Err(markErr).Str("outbox_id", record.ID).Msg("Ошибка пометки outbox как failed")
		}
		return err
	}

	if err := w.repo.MarkProcessed(ctx, record.ID); err != nil {
		log.Error().Err(err).Str("outbox_id", record.ID).Msg("Ошибка пометки outbox как отправленной")
		return err
	}
	return nil
}
