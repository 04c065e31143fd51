package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// writer is the part of *kafka.Writer the producer needs.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues messages in memory and writes them from one goroutine.
// Publish never blocks on the network.
type Producer struct {
	topic   string
	w       writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	logger  *log.Logger
}

func NewProducer(brokers []string, topic string, buf int, logger *log.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  true, // fire-and-forget; error di-log lewat Completion
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Printf("kafka write topic=%s failed for %d message(s): %v", topic, len(msgs), err)
			}
		},
	}, topic, buf, logger)
}

func newProducer(w writer, topic string, buf int, logger *log.Logger) *Producer {
	return &Producer{
		topic:   topic,
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		logger:  logger,
	}
}

func (p *Producer) Topic() string { return p.topic }

// Start drains the inbox until Close is called, then flushes what is left.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			p.write(ctx, m)
		}
		if err := p.w.Close(); err != nil {
			p.logger.Printf("kafka close writer topic=%s: %v", p.topic, err)
		}
	}()
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	// pakai ctx terpisah supaya pesan terakhir tetap terkirim saat shutdown
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(wctx, m); err != nil {
		p.logger.Printf("kafka publish topic=%s key=%s: %v", p.topic, m.Key, err)
	}
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Tutup channel supaya goroutine nge-flush sisa pesan lalu exit rapi.
func (p *Producer) Close() { close(p.inbox) }

// Tunggu sampai goroutine selesai.
func (p *Producer) WaitClosed() { <-p.closeCh }
