package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"trip-hub/domain/event"
	"trip-hub/mocks"
	"trip-hub/runtime"
)

type orderedSink struct {
	mu       sync.Mutex
	contents []string
}

func (s *orderedSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := e.(event.MessagePosted); ok {
		s.contents = append(s.contents, msg.Content)
	}
	return nil
}

func (s *orderedSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.contents))
	copy(out, s.contents)
	return out
}

func TestFanout_DeliversInOrderPerGroup(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	registry := runtime.NewRegistry()
	hub := runtime.NewHub(log, 16)

	first, second := &orderedSink{}, &orderedSink{}
	registry.Join("g1", first)
	registry.Join("g1", second)

	fanout := NewFanout(log, hub.Events(), registry, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fanout.Run(ctx)
	}()

	for i := 0; i < 5; i++ {
		hub.Broadcast(event.MessagePosted{Group: "g1", Content: fmt.Sprintf("m%d", i)})
	}

	want := []string{"m0", "m1", "m2", "m3", "m4"}
	req.Eventually(func() bool {
		return len(first.received()) == 5 && len(second.received()) == 5
	}, time.Second, 10*time.Millisecond)
	req.Equal(want, first.received())
	req.Equal(want, second.received())

	cancel()
	<-done
}

func TestFanout_SkipsForeignGroups(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	registry := runtime.NewRegistry()
	hub := runtime.NewHub(log, 16)

	sink := &orderedSink{}
	registry.Join("g1", sink)

	fanout := NewFanout(log, hub.Events(), registry, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fanout.Run(ctx)
	}()

	hub.Broadcast(event.MessagePosted{Group: "g2", Content: "not for us"})
	hub.Broadcast(event.MessagePosted{Group: "g1", Content: "for us"})

	req.Eventually(func() bool { return len(sink.received()) == 1 }, time.Second, 10*time.Millisecond)
	req.Equal([]string{"for us"}, sink.received())

	cancel()
	<-done
}

func TestSupervisor_RestartsPanickedWorker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)

	ctx, cancel := context.WithCancel(context.Background())
	worker := mocks.NewMockWorker(ctrl)
	calls := make(chan struct{}, 4)
	first := worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) error {
		calls <- struct{}{}
		panic("worker exploded")
	})
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) error {
		calls <- struct{}{}
		return nil
	}).After(first)

	supervisor := NewSupervisor(log)
	supervisor.Add(worker)
	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(ctx)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			req.Fail("worker was not restarted")
		}
	}
	cancel()
	<-done
}

func TestSupervisor_CleanFinishIsNotRestarted(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)

	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).Return(nil).Times(1)

	supervisor := NewSupervisor(log)
	supervisor.Add(worker)
	supervisor.Run(context.Background())
}
