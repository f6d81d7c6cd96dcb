package outbox

import "time"

// OutboxModel — GORM модель для таблицы outbox.
type OutboxModel struct {
	ID            string     `gorm:"column:id;type:varchar(36);primaryKey"`
	EventType     string     `gorm:"column:event_type;type:varchar(100);not null"`
	MessageKey    string     `gorm:"column:message_key;type:varchar(100);not null;index:idx_outbox_key"`
	Payload       []byte     `gorm:"column:payload;type:json;not null"`
	Headers       []byte     `gorm:"column:headers;type:json"`
	TraceID       string     `gorm:"column:trace_id;type:varchar(64)"`
	CorrelationID string     `gorm:"column:correlation_id;type:varchar(64)"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt   *time.Time `gorm:"column:processed_at;index:idx_outbox_unprocessed"`
	RetryCount    int        `gorm:"column:retry_count;not null;default:0;index:idx_outbox_retry"`
	LastError     *string    `gorm:"column:last_error;type:text"`
}

// TableName возвращает имя таблицы в БД.
func (OutboxModel) TableName() string {
	return "storefront_outbox"
}

// ToDomain конвертирует GORM модель в запись outbox.
func (m *OutboxModel) ToDomain() *Outbox {
	o := &Outbox{
		ID:            m.ID,
		EventType:     m.EventType,
		MessageKey:    m.MessageKey,
		Payload:       m.Payload,
		TraceID:       m.TraceID,
		CorrelationID: m.CorrelationID,
		CreatedAt:     m.CreatedAt,
		ProcessedAt:   m.ProcessedAt,
		RetryCount:    m.RetryCount,
		LastError:     m.LastError,
	}
	_ = o.SetHeadersFromJSON(m.Headers)
	return o
}

// ModelFromDomain конвертирует запись outbox в GORM модель.
func ModelFromDomain(o *Outbox) *OutboxModel {
	model := &OutboxModel{
		ID:            o.ID,
		EventType:     o.EventType,
		MessageKey:    o.MessageKey,
		Payload:       o.Payload,
		TraceID:       o.TraceID,
		CorrelationID: o.CorrelationID,
		CreatedAt:     o.CreatedAt,
		ProcessedAt:   o.ProcessedAt,
		RetryCount:    o.RetryCount,
		LastError:     o.LastError,
	}
	if data, err := o.HeadersJSON(); err == nil {
		model.Headers = data
	}
	return model
}
