package events

import (
	"context"
	"errors"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/service"
)

// Fanout delivers every event to all sinks, joining their errors.
type Fanout []service.EventSink

func (f Fanout) Publish(ctx context.Context, event model.RequestEvent) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
