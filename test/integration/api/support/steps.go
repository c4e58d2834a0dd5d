package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/raster"
	"github.com/MeKo-Tech/docnorm/internal/server"
)

// RegisterServerSteps registers steps that configure and start the server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.StartServer)
	sc.Step(`^the corner model finds no document$`, func() error {
		testCtx.CornersVisible = false
		return nil
	})
	sc.Step(`^rate limiting allows (\d+) requests per minute$`, func(rpm int) error {
		testCtx.Config.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: rpm}
		return nil
	})
}

// RegisterDocumentSteps registers steps that prepare uploads and send them.
func (testCtx *TestContext) RegisterDocumentSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a (\d+)x(\d+) photo of a document$`, testCtx.aPhotoOfADocument)
	sc.Step(`^a text file$`, func() error {
		testCtx.Document = []byte("just some notes")
		testCtx.DocumentType = "text/plain"
		return nil
	})
	sc.Step(`^the layout "([^"]*)" of (\d+)x(\d+) with fields:$`, testCtx.theLayoutWithFields)
	sc.Step(`^the layout is "([^"]*)"$`, func(raw string) error {
		testCtx.Layout = raw
		return nil
	})

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I normalize the document to (\d+)x(\d+)$`, testCtx.iNormalizeTheDocumentTo)
	sc.Step(`^I extract the document$`, func() error { return testCtx.iExtract("", "") })
	sc.Step(`^I extract the document with engines "([^"]*)"$`, func(engines string) error {
		return testCtx.iExtract(engines, "")
	})
	sc.Step(`^I extract the document with engines "([^"]*)" and lang "([^"]*)"$`, testCtx.iExtract)
}

// RegisterResponseSteps registers assertions on the last response.
func (testCtx *TestContext) RegisterResponseSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should be a (\d+)x(\d+) PNG$`, testCtx.theResponseShouldBeAPNG)
	sc.Step(`^the error code should be "([^"]*)"$`, testCtx.theErrorCodeShouldBe)
	sc.Step(`^the response should list engines "([^"]*)"$`, testCtx.theResponseShouldListEngines)
	sc.Step(`^the results should come from engines "([^"]*)" in order$`, testCtx.theResultsShouldComeFromEngines)
	sc.Step(`^engine "([^"]*)" should read "([^"]*)" for field "([^"]*)"$`, testCtx.engineShouldRead)
	sc.Step(`^the total price should be ([0-9.]+)$`, testCtx.theTotalPriceShouldBe)
	sc.Step(`^the header "([^"]*)" should be set$`, func(name string) error {
		if testCtx.LastHeaders.Get(name) == "" {
			return fmt.Errorf("header %s missing", name)
		}
		return nil
	})
}

// aPhotoOfADocument draws a light page on a dark table.
func (testCtx *TestContext) aPhotoOfADocument(width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			c := color.RGBA{R: 40, G: 40, B: 50, A: 255}
			if x > width/6 && x < width*5/6 && y > height/6 && y < height*5/6 {
				c = color.RGBA{R: 240, G: 235, B: 225, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	testCtx.Document = buf.Bytes()
	testCtx.DocumentType = raster.MimePNG
	return nil
}

func (testCtx *TestContext) theLayoutWithFields(name string, width, height int, table *godog.Table) error {
	layout := fields.Layout{Name: name, Width: float64(width), Height: float64(height)}
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) < 3 {
			return fmt.Errorf("row %d: want name, upper_left, lower_right[, multiline]", i)
		}
		ul, err := parsePoint(row.Cells[1].Value)
		if err != nil {
			return err
		}
		lr, err := parsePoint(row.Cells[2].Value)
		if err != nil {
			return err
		}
		d := fields.Descriptor{Name: row.Cells[0].Value, UpperLeft: ul, LowerRight: lr}
		if len(row.Cells) > 3 {
			d.IsMultiline = row.Cells[3].Value == "yes"
		}
		layout.Fields = append(layout.Fields, d)
	}
	raw, err := json.Marshal(layout)
	if err != nil {
		return err
	}
	testCtx.Layout = string(raw)
	return nil
}

func parsePoint(s string) (raster.NormalizedPoint, error) {
	x, y, ok := strings.Cut(s, ",")
	if !ok {
		return raster.NormalizedPoint{}, fmt.Errorf("point %q: want x,y", s)
	}
	px, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
	if err != nil {
		return raster.NormalizedPoint{}, err
	}
	py, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err != nil {
		return raster.NormalizedPoint{}, err
	}
	return raster.NormalizedPoint{X: px, Y: py}, nil
}

func (testCtx *TestContext) iGET(path string) error {
	if err := testCtx.StartServer(); err != nil {
		return err
	}
	resp, err := http.Get(testCtx.Server.URL + path) //nolint:noctx // test request
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) iNormalizeTheDocumentTo(width, height int) error {
	return testCtx.postMultipart("/v1/normalize", map[string]string{
		"width":  strconv.Itoa(width),
		"height": strconv.Itoa(height),
	})
}

func (testCtx *TestContext) iExtract(engines, lang string) error {
	q := url.Values{}
	if engines != "" {
		q.Set("engines", engines)
	}
	if lang != "" {
		q.Set("lang", lang)
	}
	path := "/v1/extract"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return testCtx.postMultipart(path, map[string]string{"layout": testCtx.Layout})
}

func (testCtx *TestContext) postMultipart(path string, values map[string]string) error {
	if err := testCtx.StartServer(); err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if testCtx.Document != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="document"; filename="document"`)
		h.Set("Content-Type", testCtx.DocumentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(testCtx.Document); err != nil {
			return err
		}
	}
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := http.Post(testCtx.Server.URL+path, mw.FormDataContentType(), &body) //nolint:noctx // test request
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) record(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastStatus = resp.StatusCode
	testCtx.LastBody = data
	testCtx.LastHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, testCtx.LastStatus, testCtx.LastBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeAPNG(width, height int) error {
	if ct := testCtx.LastHeaders.Get("Content-Type"); ct != raster.MimePNG {
		return fmt.Errorf("expected %s, got %q", raster.MimePNG, ct)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(testCtx.LastBody))
	if err != nil {
		return fmt.Errorf("decode png: %w", err)
	}
	if cfg.Width != width || cfg.Height != height {
		return fmt.Errorf("expected %dx%d, got %dx%d", width, height, cfg.Width, cfg.Height)
	}
	return nil
}

func (testCtx *TestContext) theErrorCodeShouldBe(code string) error {
	var resp server.ErrorResponse
	if err := json.Unmarshal(testCtx.LastBody, &resp); err != nil {
		return fmt.Errorf("decode error response: %w", err)
	}
	if resp.Code != code {
		return fmt.Errorf("expected error code %q, got %q (%s)", code, resp.Code, resp.Error)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldListEngines(list string) error {
	var resp server.EnginesResponse
	if err := json.Unmarshal(testCtx.LastBody, &resp); err != nil {
		return err
	}
	if got := strings.Join(resp.Engines, ","); got != list {
		return fmt.Errorf("expected engines %q, got %q", list, got)
	}
	return nil
}

func (testCtx *TestContext) extractResponse() (*server.ExtractResponse, error) {
	var resp server.ExtractResponse
	if err := json.Unmarshal(testCtx.LastBody, &resp); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}
	return &resp, nil
}

func (testCtx *TestContext) theResultsShouldComeFromEngines(list string) error {
	resp, err := testCtx.extractResponse()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		names = append(names, r.Engine)
	}
	if got := strings.Join(names, ","); got != list {
		return fmt.Errorf("expected engines %q, got %q", list, got)
	}
	return nil
}

func (testCtx *TestContext) engineShouldRead(engine, text, field string) error {
	resp, err := testCtx.extractResponse()
	if err != nil {
		return err
	}
	for _, r := range resp.Results {
		if r.Engine != engine {
			continue
		}
		for _, f := range r.OCR {
			if f.Field.Name == field {
				if f.Result.Text != text {
					return fmt.Errorf("%s/%s: expected %q, got %q", engine, field, text, f.Result.Text)
				}
				return nil
			}
		}
		return fmt.Errorf("%s: no result for field %s", engine, field)
	}
	return fmt.Errorf("no results from engine %s", engine)
}

func (testCtx *TestContext) theTotalPriceShouldBe(expected float64) error {
	resp, err := testCtx.extractResponse()
	if err != nil {
		return err
	}
	if math.Abs(resp.TotalPrice-expected) > 1e-9 {
		return fmt.Errorf("expected total price %v, got %v", expected, resp.TotalPrice)
	}
	return nil
}
