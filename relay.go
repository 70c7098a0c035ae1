package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/loov/hotserver/pipeline"
	"github.com/loov/hotserver/reload"
	"github.com/loov/hotserver/watch"
)

// relay forwards watcher events to the hub. With commands configured the
// commands run first and the browsers are notified only when they succeed.
// A new change kills the commands still running for the previous one.
type relay struct {
	hub    *reload.Hub
	events <-chan watch.Event
	log    *slog.Logger

	dir    string
	procs  []pipeline.Process
	output io.Writer

	mu     sync.Mutex
	active *pipeline.Pipeline
	wg     sync.WaitGroup
}

func (relay *relay) Run(ctx context.Context) error {
	if len(relay.procs) == 0 {
		return relay.hub.Run(ctx, relay.events)
	}

	defer relay.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			relay.kill()
			return nil
		case event := <-relay.events:
			relay.change(event)
		}
	}
}

func (relay *relay) change(event watch.Event) {
	relay.mu.Lock()
	defer relay.mu.Unlock()

	if relay.active != nil {
		relay.active.Kill()
	}

	pipe := &pipeline.Pipeline{
		Dir:       relay.dir,
		Output:    relay.output,
		Log:       relay.log,
		Processes: relay.procs,
	}
	relay.active = pipe

	relay.wg.Add(1)
	go func() {
		defer relay.wg.Done()

		err := pipe.Run()
		switch {
		case err == nil:
			relay.hub.OnChange(event.Path)
		case errors.Is(err, pipeline.ErrKilled):
			relay.log.Debug("superseded", "path", event.Path)
		default:
			relay.log.Warn("browsers not notified", "path", event.Path, "err", err)
		}
	}()
}

func (relay *relay) kill() {
	relay.mu.Lock()
	defer relay.mu.Unlock()

	if relay.active != nil {
		relay.active.Kill()
		relay.active = nil
	}
}
