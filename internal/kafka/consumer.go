package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Consumer struct {
	r          *kafka.Reader
	commit     committer
	topic      string
	workers    int
	backoff    time.Duration
	maxBackoff time.Duration
	logger     *log.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, logger *log.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:          r,
		commit:     r,
		topic:      topic,
		workers:    workers,
		backoff:    200 * time.Millisecond,
		maxBackoff: 5 * time.Second,
		logger:     logger,
	}
}

// Start blocks until ctx is cancelled or the reader fails. Each partition is
// pinned to one worker so messages of one key run in order. A failing
// message is retried in place until it succeeds, so its offset is never
// committed past.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(id int, in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if !c.handle(ctx, id, m, h) {
					// ctx selesai; sisa pesan diambil ulang setelah restart
					return
				}
			}
		}(i, jobs[i])
	}
	defer wg.Wait()
	defer func() {
		for _, ch := range jobs {
			close(ch)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs[c.workerFor(m.Partition)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) workerFor(partition int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % c.workers
}

// handle runs h until it succeeds and then commits m. It reports false when
// ctx ends first.
func (c *Consumer) handle(ctx context.Context, id int, m kafka.Message, h Handler) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		c.logger.Printf("consumer topic=%s worker=%d partition=%d offset=%d attempt=%d: %v",
			c.topic, id, m.Partition, m.Offset, attempt, err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if wait *= 2; wait > c.maxBackoff {
			wait = c.maxBackoff
		}
	}

	if err := c.commit.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.Printf("consumer topic=%s commit offset=%d: %v", c.topic, m.Offset, err)
	}
	return true
}
