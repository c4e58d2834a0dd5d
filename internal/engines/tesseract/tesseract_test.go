package tesseract

import (
	"context"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docnorm/internal/fields"
)

func TestMeanConfidence(t *testing.T) {
	assert.Zero(t, meanConfidence(nil))
	assert.InDelta(t, 0.85, meanConfidence([]gosseract.BoundingBox{{Confidence: 90}, {Confidence: 80}}), 1e-9)
}

func TestPageSegMode(t *testing.T) {
	assert.Equal(t, gosseract.PSM_SINGLE_LINE, pageSegMode(false))
	assert.Equal(t, gosseract.PSM_SINGLE_BLOCK, pageSegMode(true))
}

func TestStartupResolvesLanguage(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.Startup(context.Background(), "en+de"))
	assert.Equal(t, []string{"eng", "deu"}, e.langs)
	assert.Equal(t, 2, e.MaxConcurrency())
	require.NoError(t, e.Cleanup())

	assert.Error(t, New(Config{}).Startup(context.Background(), ""))
}

func TestExtractFieldBeforeStartup(t *testing.T) {
	e := New(Config{Sessions: 1})
	_, err := e.ExtractField(context.Background(), fields.Crop{Raster: nil})
	assert.Error(t, err)
}
