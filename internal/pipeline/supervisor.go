package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/complementa/backend/internal/bus"
)

// ShutdownTimeout bounds how long the supervisor waits for in-flight
// messages to finish before abandoning them.
const ShutdownTimeout = 30 * time.Second

// stage pairs a consumer with the worker handling its topic.
type stage struct {
	name     string
	consumer *bus.Consumer
	handler  bus.Handler
}

// Supervisor runs the three stage consumers on independent goroutines. One
// stage crashing does not tear the others down; shutdown closes all
// subscriptions and waits a bounded time for handlers to drain.
type Supervisor struct {
	stages []stage
	logger *slog.Logger
}

// NewSupervisor builds the supervisor for the given brokers and workers.
func NewSupervisor(brokers []string, ingest *IngestWorker, metadata *MetadataWorker, categorize *CategorizeWorker) *Supervisor {
	return &Supervisor{
		stages: []stage{
			{
				name:     "ingest",
				consumer: bus.NewConsumer(brokers, bus.TopicIngest, bus.GroupIngest),
				handler:  ingest.Handle,
			},
			{
				name:     "metadata",
				consumer: bus.NewConsumer(brokers, bus.TopicOcr, bus.GroupOcr),
				handler:  metadata.Handle,
			},
			{
				name:     "categorization",
				consumer: bus.NewConsumer(brokers, bus.TopicMetadata, bus.GroupMetadata),
				handler:  categorize.Handle,
			},
		},
		logger: slog.With("component", "pipeline.supervisor"),
	}
}

// Run blocks until ctx is canceled, then shuts the consumers down.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, st := range s.stages {
		wg.Add(1)
		go func(st stage) {
			defer wg.Done()
			if err := st.consumer.Run(ctx, st.handler); err != nil {
				s.logger.Error("stage consumer exited", "stage", st.name, "error", err)
			}
		}(st)
	}

	<-ctx.Done()
	s.logger.Info("shutting down stage consumers")
	for _, st := range s.stages {
		if err := st.consumer.Close(); err != nil {
			s.logger.Error("consumer close failed", "stage", st.name, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("all stage consumers stopped")
	case <-time.After(ShutdownTimeout):
		s.logger.Warn("shutdown timeout elapsed, abandoning in-flight work")
	}
}
