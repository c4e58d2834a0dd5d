// Package support holds the godog step definitions for the HTTP API suite.
package support

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/MeKo-Tech/docnorm/internal/corner"
	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/normalize"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/onnx"
	"github.com/MeKo-Tech/docnorm/internal/onnx/mock"
	"github.com/MeKo-Tech/docnorm/internal/server"
)

// heatmapCorners are blob centres in heatmap space, in channel order.
var heatmapCorners = []mock.Point{{X: 20, Y: 20}, {X: 108, Y: 20}, {X: 108, Y: 108}, {X: 20, Y: 108}}

// TestContext holds the state of one scenario.
type TestContext struct {
	Server   *httptest.Server
	Registry *ocr.Registry
	Config   server.Config

	// CornersVisible switches the stub corner model between four blobs
	// and an empty heatmap.
	CornersVisible bool

	Document     []byte
	DocumentType string
	Layout       string

	LastStatus  int
	LastBody    []byte
	LastHeaders http.Header
}

// NewTestContext returns a context with the stub engines registered.
func NewTestContext() *TestContext {
	reg := ocr.NewRegistry()
	reg.Register("stub", func() (ocr.Engine, error) { return &namingEngine{price: 0.001}, nil })
	reg.Register("fielder", func() (ocr.Engine, error) { return &perFieldEngine{}, nil })
	reg.Register("failing", func() (ocr.Engine, error) { return &failingEngine{}, nil })

	return &TestContext{
		Registry:       reg,
		CornersVisible: true,
		Config: server.Config{
			Host:          "127.0.0.1",
			Port:          0,
			Timeout:       30 * time.Second,
			DefaultEngine: "stub",
			DefaultLang:   "en",
			Version:       "test",
		},
	}
}

// cornerModel stands in for the ONNX session.
func (testCtx *TestContext) cornerModel() corner.Model {
	return corner.ModelFunc(func(_ context.Context, _ onnx.Tensor) (onnx.Tensor, error) {
		var data []float32
		if testCtx.CornersVisible {
			data = mock.NewCornerHeatmaps(corner.HeatmapSize, heatmapCorners, 4)
		} else {
			data = mock.NewEmpty(corner.HeatmapSize, corner.NumCorners)
		}
		return onnx.Tensor{
			Data:  data,
			Shape: []int64{1, corner.NumCorners, corner.HeatmapSize, corner.HeatmapSize},
		}, nil
	})
}

// StartServer builds the real normalizer around the stub model and serves it.
func (testCtx *TestContext) StartServer() error {
	if testCtx.Server != nil {
		return nil
	}
	detector, err := corner.NewDetector(testCtx.cornerModel())
	if err != nil {
		return err
	}
	normalizer, err := normalize.New(decode.NewDecoder(nil), detector)
	if err != nil {
		return err
	}
	dispatcher := ocr.NewDispatcher(testCtx.Registry, ocr.WithWorkers(2), ocr.WithObserver(server.MetricsObserver{}))

	srv, err := server.New(testCtx.Config, normalizer, dispatcher)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	testCtx.Server = httptest.NewServer(srv.Router())
	return nil
}

// Cleanup stops the server.
func (testCtx *TestContext) Cleanup() {
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}
}
