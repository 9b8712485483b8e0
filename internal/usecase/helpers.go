package usecase

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"casepay/internal/domain/repository"
	"casepay/internal/domain/service"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
)

const publishTimeout = 10 * time.Second

// publishAsync hands the event to the publisher without holding up the
// caller. Publish failures are logged only. wg tracks in-flight publishes.
func publishAsync(ctx context.Context, wg *sync.WaitGroup, publisher service.CaseEventPublisher, event service.CaseEvent) {
	if publisher == nil {
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := publisher.PublishCaseEvent(pubCtx, event); err != nil {
			logger.Error("failed to publish case event",
				"type", event.Type, "case_id", event.CaseID, "error", err)
		}
	}()
}

func lookupError(resource string, err error) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound(resource, err)
	}
	return errors.Internal("Failed to load "+resource, err)
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
