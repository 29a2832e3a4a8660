// Package publish streams decoded DAO events to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sputnikScope/internal/model"
	"sputnikScope/internal/telemetry"
)

const defaultTopicPrefix = "sputnikscope-events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes one message per event to the topic of its contract.
type Producer struct {
	writer messageWriter
	prefix string
}

type ProducerConfig struct {
	Brokers     []string
	TopicPrefix string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           500 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newProducer(writer, cfg.TopicPrefix), nil
}

func newProducer(writer messageWriter, prefix string) *Producer {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultTopicPrefix
	}
	return &Producer{writer: writer, prefix: prefix}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishEvents writes events keyed by transaction hash so every event of a
// transaction lands on the same partition.
func (p *Producer) PublishEvents(ctx context.Context, events []model.DAOEvent) error {
	if len(events) == 0 {
		return nil
	}
	tracer := otel.Tracer("sputnikScope/publish")
	messages := make([]kafka.Message, 0, len(events))
	spans := make([]trace.Span, 0, len(events))
	for _, event := range events {
		spanCtx, span := tracer.Start(ctx, "publish.dao_event", trace.WithSpanKind(trace.SpanKindProducer))
		span.SetAttributes(
			attribute.String("dao.contract", event.Contract),
			attribute.String("dao.method", event.Method),
			attribute.String("tx.hash", event.TxHash),
			attribute.Int64("block.height", int64(event.BlockHeight)),
		)

		msg, err := p.message(spanCtx, event)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			for _, pending := range spans {
				pending.End()
			}
			return err
		}
		messages = append(messages, msg)
		spans = append(spans, span)
	}

	err := p.writer.WriteMessages(ctx, messages...)
	for _, span := range spans {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
	return err
}

func (p *Producer) message(ctx context.Context, event model.DAOEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", event.TxnID, err)
	}
	return kafka.Message{
		Topic:   p.topicForContract(event.Contract),
		Key:     []byte(event.TxHash),
		Value:   payload,
		Headers: telemetry.InjectKafkaHeaders(ctx, make([]kafka.Header, 0, 2)),
	}, nil
}

func (p *Producer) topicForContract(contract string) string {
	return fmt.Sprintf("%s-%s", p.prefix, contract)
}
