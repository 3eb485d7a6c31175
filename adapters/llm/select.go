package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain"
)

// ModelProbe checks that a model can be served
type ModelProbe func(ctx context.Context, model string) error

// SelectModel returns the first of models that probe accepts, trying them in
// order. Empty names are skipped. When none is available the returned error
// is an ExternalServiceError wrapping ErrModelUnavailable.
func SelectModel(ctx context.Context, logger *zap.Logger, probe ModelProbe, models ...string) (string, error) {
	var errs []error
	for _, model := range models {
		if model == "" {
			continue
		}

		logger.Info("Attempting to load model", zap.String("model", model))
		if err := probe(ctx, model); err != nil {
			logger.Warn("Failed to load model", zap.String("model", model), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", model, err))
			continue
		}

		logger.Info("Successfully loaded model", zap.String("model", model))
		return model, nil
	}

	cause := errors.Join(append([]error{domain.ErrModelUnavailable}, errs...)...)
	return "", &domain.ExternalServiceError{Op: "load", Err: cause}
}
