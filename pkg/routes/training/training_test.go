package training

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/ruleset"
)

type failingPublisher struct{}

func (p *failingPublisher) PublishDocumentEvent(ctx context.Context, event *kafka.DocumentEvent) error {
	return errors.New("broker unavailable")
}

func TestTrainModelEmitFailureIsLoggedNotFatal(t *testing.T) {
	var captured []ectologger.EctoLogMessage
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		captured = append(captured, msg)
	})

	dir := t.TempDir()
	samples := classifier.NewSampleStore(dir, logger)
	require.NoError(t, samples.Append("完税凭证 契税", "tax_receipt"))
	require.NoError(t, samples.Append("不动产权证书", "property_cert"))
	hybrid := classifier.New(ruleset.Default(), samples, classifier.NewModelStore(dir, logger), classifier.DefaultConfig(), logger)

	emitter := events.NewEmitter(&failingPublisher{}, logger)

	container, err := ectoinject.NewDIDefaultContainer()
	require.NoError(t, err)
	require.NoError(t, ectoinject.RegisterInstance[ectologger.Logger](container, logger))
	require.NoError(t, ectoinject.RegisterInstance[*config.Config](container, &config.Config{MinSamplesForTraining: 10}))
	require.NoError(t, ectoinject.RegisterInstance[*classifier.HybridClassifier](container, hybrid))
	require.NoError(t, ectoinject.RegisterInstance[*events.Emitter](container, emitter))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/training?force=true", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, TrainModel(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The broken broker surfaces as a warning, never as a request failure
	warned := false
	for _, msg := range captured {
		if msg.Level == "warn" && msg.Message == "Failed to emit model trained event" {
			warned = true
		}
	}
	assert.True(t, warned)
}
