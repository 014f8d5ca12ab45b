package app

import (
	"fmt"

	"go.uber.org/zap"

	"aqualess/internal/eventbus"
	"aqualess/internal/loop"
	"aqualess/internal/metrics"
	"aqualess/internal/ui"
)

// subscribe logs pipe and window lifecycle events, counts searches and forwards producer
// errors to the status line. Handlers run on the bus goroutine, so anything
// touching the model is posted to the queue.
func subscribe(bus eventbus.EventBus, logger *zap.Logger, m *metrics.Metrics, queue loop.Scheduler, model *ui.Model) {
	log := logger.Named("events")

	bus.Subscribe(eventbus.EventConfigLoaded, func(e eventbus.DomainEvent) {
		if event, ok := e.(eventbus.ConfigLoadedEvent); ok {
			log.Info("config loaded", zap.String("path", event.Path))
		}
	})
	bus.Subscribe(eventbus.EventConfigSaved, func(e eventbus.DomainEvent) {
		if event, ok := e.(eventbus.ConfigSavedEvent); ok {
			log.Info("config saved", zap.String("path", event.Path))
		}
	})
	bus.Subscribe(eventbus.EventPipeClosed, func(e eventbus.DomainEvent) {
		if event, ok := e.(eventbus.PipeClosedEvent); ok {
			log.Info("pipe closed", zap.Stringer("handle", event.Handle), zap.Int("size", event.Size))
		}
	})
	bus.Subscribe(eventbus.EventPipeReleased, func(e eventbus.DomainEvent) {
		if event, ok := e.(eventbus.PipeReleasedEvent); ok {
			log.Info("pipe released", zap.Stringer("handle", event.Handle), zap.Int("discarded", event.Discarded))
		}
	})
	bus.Subscribe(eventbus.EventWindowOpened, func(e eventbus.DomainEvent) {
		if event, ok := e.(eventbus.WindowOpenedEvent); ok {
			log.Debug("window opened", zap.String("name", event.Name))
		}
	})
	bus.Subscribe(eventbus.EventWindowClosed, func(e eventbus.DomainEvent) {
		if event, ok := e.(eventbus.WindowClosedEvent); ok {
			log.Debug("window closed", zap.String("name", event.Name))
		}
	})
	bus.Subscribe(eventbus.EventSearchPerformed, func(e eventbus.DomainEvent) {
		if event, ok := e.(eventbus.SearchPerformedEvent); ok {
			m.Searches.WithLabelValues(searchOutcome(event)).Inc()
		}
	})
	bus.Subscribe(eventbus.EventError, func(e eventbus.DomainEvent) {
		event, ok := e.(eventbus.ErrorEvent)
		if !ok {
			return
		}
		log.Warn("error", zap.String("message", event.Message), zap.Error(event.Err))
		if model == nil {
			return
		}
		msg := fmt.Sprintf("%s: %v", event.Message, event.Err)
		queue.Post(func() { model.ShowError(msg) })
	})
}

func searchOutcome(e eventbus.SearchPerformedEvent) string {
	if e.Found {
		return "found"
	}
	return e.Kind.String()
}
