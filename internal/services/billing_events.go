package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"wastebill/server/internal/models"
)

// Billing event types emitted to the stream.
const (
	EventInvoiceCreated  = "invoice.created"
	EventInvoiceUpdated  = "invoice.updated"
	EventInvoiceDeleted  = "invoice.deleted"
	EventPaymentRecorded = "invoice.payment.recorded"
)

// BillingEvent is the wire format published to the billing topic.
type BillingEvent struct {
	Type       string    `json:"type"`
	InvoiceID  string    `json:"invoiceId"`
	InvoiceNo  string    `json:"invoiceNo"`
	GrandTotal string    `json:"grandTotal"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// BillingEventPublisher streams invoice lifecycle events to Kafka.
// A nil publisher is valid and drops everything, so the engine keeps
// working when no brokers are configured.
type BillingEventPublisher struct {
	writer *kafka.Writer
}

// NewBillingEventPublisher builds a publisher over the given brokers and
// topic. The dialer carries SASL/TLS when credentials are configured.
func NewBillingEventPublisher(brokers []string, topic string, dialer *kafka.Dialer) *BillingEventPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Dialer:       dialer,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	})
	return &BillingEventPublisher{writer: writer}
}

// Publish emits one lifecycle event keyed by invoice id. Failures are
// logged and swallowed: the invoice write already committed and the
// stream is a downstream convenience, not part of the transaction.
func (p *BillingEventPublisher) Publish(ctx context.Context, eventType string, invoice *models.Invoice) {
	if p == nil || invoice == nil {
		return
	}

	event := BillingEvent{
		Type:       eventType,
		InvoiceID:  invoice.ID,
		InvoiceNo:  invoice.InvoiceNo,
		GrandTotal: invoice.GrandTotal.StringFixed(2),
		Status:     string(invoice.Status),
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to encode billing event")
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(invoice.ID),
		Value: payload,
	}); err != nil {
		log.Error().Err(err).
			Str("event", eventType).
			Str("invoice_no", invoice.InvoiceNo).
			Msg("failed to publish billing event")
		return
	}

	log.Debug().
		Str("event", eventType).
		Str("invoice_no", invoice.InvoiceNo).
		Msg("billing event published")
}

// Close flushes and shuts the underlying writer.
func (p *BillingEventPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
