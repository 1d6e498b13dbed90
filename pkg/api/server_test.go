package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/james-see/stepseq/pkg/export"
	"github.com/james-see/stepseq/pkg/logging"
	"github.com/james-see/stepseq/pkg/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	return NewServer(export.New(), logging.Discard()).Router()
}

func do(t *testing.T, r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func patternBody(t *testing.T, p *pattern.Pattern) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	return buf.Bytes()
}

func decodePattern(t *testing.T, w *httptest.ResponseRecorder) *pattern.Pattern {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p, err := pattern.Decode(w.Body)
	require.NoError(t, err)
	return p
}

func TestHealth(t *testing.T) {
	r := newTestRouter()
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	}
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodOptions, "/api/v1/export", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDefaultPattern(t *testing.T) {
	r := newTestRouter()

	p := decodePattern(t, do(t, r, http.MethodGet, "/api/v1/pattern/default", nil))
	assert.Equal(t, 8, p.Rows())
	assert.Equal(t, 4, p.Bars())
	assert.Equal(t, 16, p.StepsPerBar())

	p = decodePattern(t, do(t, r, http.MethodGet, "/api/v1/pattern/default?rows=2&bars=1&steps=8", nil))
	assert.Equal(t, 2, p.Rows())
	assert.Equal(t, 1, p.Bars())
	assert.Equal(t, 8, p.StepsPerBar())

	w := do(t, r, http.MethodGet, "/api/v1/pattern/default?rows=lots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid rows")
}

func TestRandomize(t *testing.T) {
	r := newTestRouter()
	body := patternBody(t, pattern.New(2, 2, 4))

	p := decodePattern(t, do(t, r, http.MethodPost, "/api/v1/pattern/randomize?bar=1&density=1&min=50&max=60&seed=7", body))
	for row := 0; row < 2; row++ {
		for step := 0; step < 4; step++ {
			assert.Zero(t, p.Velocity(row, 0, step))
			v := p.Velocity(row, 1, step)
			assert.GreaterOrEqual(t, v, uint8(50))
			assert.LessOrEqual(t, v, uint8(60))
		}
	}

	again := decodePattern(t, do(t, r, http.MethodPost, "/api/v1/pattern/randomize?bar=1&density=1&min=50&max=60&seed=7", body))
	assert.Equal(t, p.Record(), again.Record(), "same seed, same result")
}

func TestHumanize(t *testing.T) {
	src := pattern.New(1, 1, 4)
	src.SetVelocity(0, 0, 1, 100)

	p := decodePattern(t, do(t, newTestRouter(), http.MethodPost, "/api/v1/pattern/humanize?amount=5&seed=3", patternBody(t, src)))
	assert.Zero(t, p.Velocity(0, 0, 0))
	assert.InDelta(t, 100, int(p.Velocity(0, 0, 1)), 5)
}

func TestCopyBar(t *testing.T) {
	r := newTestRouter()
	src := pattern.New(1, 2, 4)
	src.SetVelocity(0, 0, 2, 90)

	p := decodePattern(t, do(t, r, http.MethodPost, "/api/v1/pattern/copy?from=0&to=1", patternBody(t, src)))
	assert.Equal(t, uint8(90), p.Velocity(0, 1, 2))

	w := do(t, r, http.MethodPost, "/api/v1/pattern/copy?from=0", patternBody(t, src))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResize(t *testing.T) {
	src := pattern.New(1, 1, 4)
	src.SetVelocity(0, 0, 3, 70)

	p := decodePattern(t, do(t, newTestRouter(), http.MethodPost, "/api/v1/pattern/resize?bars=3&steps=8", patternBody(t, src)))
	assert.Equal(t, 3, p.Bars())
	assert.Equal(t, 8, p.StepsPerBar())
	assert.Equal(t, uint8(70), p.Velocity(0, 0, 3))
}

func TestDimensionsAreBounded(t *testing.T) {
	r := newTestRouter()

	p := decodePattern(t, do(t, r, http.MethodGet, "/api/v1/pattern/default?rows=100000&bars=1&steps=1", nil))
	assert.Equal(t, pattern.MaxRows, p.Rows())

	p = decodePattern(t, do(t, r, http.MethodGet, "/api/v1/pattern/default?rows=1&bars=2147483648&steps=1", nil))
	assert.Equal(t, pattern.MaxBars, p.Bars())

	p = decodePattern(t, do(t, r, http.MethodGet, "/api/v1/pattern/default?rows=1&bars=1&steps=2147483648", nil))
	assert.Equal(t, pattern.MaxStepsPerBar, p.StepsPerBar())

	src := pattern.New(1, 1, 4)
	src.SetVelocity(0, 0, 1, 80)
	p = decodePattern(t, do(t, r, http.MethodPost, "/api/v1/pattern/resize?bars=2147483648&steps=2147483648", patternBody(t, src)))
	assert.Equal(t, pattern.MaxBars, p.Bars())
	assert.Equal(t, pattern.MaxStepsPerBar, p.StepsPerBar())
	assert.Equal(t, uint8(80), p.Velocity(0, 0, 1))
}

func TestExport(t *testing.T) {
	src := pattern.New(1, 1, 4)
	src.SetVelocity(0, 0, 0, 100)

	w := do(t, newTestRouter(), http.MethodPost, "/api/v1/export?bpm=100", patternBody(t, src))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "pattern.mid")

	sum, err := export.Inspect(w.Body.Bytes())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, sum.BPM, 0.001)
}

func TestMalformedPatternIsBadRequest(t *testing.T) {
	r := newTestRouter()
	bodies := []string{
		`not json`,
		`{"numRows": 0, "bars": 1, "stepsPerBar": 1, "rowsMeta": [], "data": []}`,
		`{"numRows": 1, "bars": 1, "stepsPerBar": 1, "rowsMeta": [{"name": "k", "midiNote": 36}], "data": [[[300]]]}`,
	}
	for _, path := range []string{
		"/api/v1/export",
		"/api/v1/pattern/randomize",
		"/api/v1/pattern/humanize",
		"/api/v1/pattern/resize",
	} {
		for _, body := range bodies {
			w := do(t, r, http.MethodPost, path, []byte(body))
			assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s", path, body)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, strings.Contains(resp["error"], "invalid pattern format"), resp["error"])
		}
	}
}

func TestTiming(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodGet, "/api/v1/timing?bpm=120&steps=4&swing=0.5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp timingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int64{250, 750, 250, 750}, resp.DurationsMs)
	assert.Equal(t, 0.5, resp.Swing)

	w = do(t, r, http.MethodGet, "/api/v1/timing?bpm=120&steps=16&count=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int64{125, 125, 125}, resp.DurationsMs)

	w = do(t, r, http.MethodGet, "/api/v1/timing?swing=lots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFormats(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, "/api/v1/formats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pattern -> midi")
}

func TestInitSentry(t *testing.T) {
	flush, err := InitSentry("")
	require.NoError(t, err)
	flush()

	_, err = InitSentry("not a dsn")
	assert.ErrorContains(t, err, "failed to init sentry")
}
