package events

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/dinehall/ordering/internal/checkout"
	"github.com/segmentio/kafka-go"
)

// Publisher drains order-submitted events from the checkout journal's outbox
// to kafka. Publishing is decoupled from the checkout path: a broker outage
// delays kitchen notifications, it never fails a checkout.
type Publisher struct {
	timeout   time.Duration
	eventTick time.Duration
	journal   checkout.Journal
	writer    *kafka.Writer
}

func NewPublisher(journal checkout.Journal, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-submitted",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{
		timeout:   time.Second * 5,
		eventTick: time.Second,
		journal:   journal,
		writer:    w,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("failed to close kafka writer: %v", err)
	}
}

func (p *Publisher) processUnpublishedEvents(ctx context.Context) {
	events, err := p.journal.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch events %v", err)
		return
	}

	for _, event := range events {
		errPublish := p.publish(ctx, event.ID, event.Payload)
		if errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		errMark := p.journal.MarkEventAsProcessed(ctx, event.ID)
		if errMark != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

func (p *Publisher) publish(ctx context.Context, id int64, payload []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(strconv.FormatInt(id, 10)),
		Value: payload,
	})
}
