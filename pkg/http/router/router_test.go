package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/http/usecases"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTraining struct {
	report usecases.TrainingReport
	err    error
}

func (f *fakeTraining) Train(_ context.Context) (usecases.TrainingReport, error) {
	return f.report, f.err
}

type fakePrediction struct {
	err  error
	rows []estimator.FeatureRow
}

// Predict returns 0.1 s per meter plus the base time, doubled on closure days.
func (f *fakePrediction) Predict(row estimator.FeatureRow) (estimator.Prediction, error) {
	f.rows = append(f.rows, row)
	if f.err != nil {
		return estimator.Prediction{}, f.err
	}
	sec := 0.1*row.DistanceM + row.BaseTimeSec
	if row.ClosureFlag == 1 {
		sec *= 2
	}
	return estimator.NewPrediction(sec), nil
}

type fakeQuote struct {
	quote usecases.Quote
	err   error
}

func (f *fakeQuote) Quote(_, _, _, _ float64, isThursday int) (usecases.Quote, error) {
	q := f.quote
	q.IsThursday = isThursday
	return q, f.err
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newHandler(training *fakeTraining, prediction *fakePrediction, quote *fakeQuote) http.Handler {
	return NewAPI(zap.NewNop()).Handler(context.Background(), false, training, prediction, quote)
}

func serve(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestPredict(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		predictErr error
		wantStatus int
		wantCode   string
		wantMsg    string
		wantSec    float64
		wantMin    float64
		wantFlag   int
	}{
		{
			name:       "closure day",
			body:       `{"distance_m": 1000, "base_time_sec": 120, "is_thursday": 1}`,
			wantStatus: http.StatusOK,
			wantSec:    440,
			wantMin:    7.33,
			wantFlag:   1,
		},
		{
			name:       "closure flag defaults to zero",
			body:       `{"distance_m": 500, "base_time_sec": 60}`,
			wantStatus: http.StatusOK,
			wantSec:    110,
			wantMin:    1.83,
		},
		{
			name:       "zero values are valid",
			body:       `{"distance_m": 0, "base_time_sec": 0, "is_thursday": 0}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing base time",
			body:       `{"distance_m": 1000}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "closure flag out of range",
			body:       `{"distance_m": 1000, "base_time_sec": 120, "is_thursday": 3}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "negative distance",
			body:       `{"distance_m": -5, "base_time_sec": 120}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "not a json object",
			body:       `[1, 2, 3]`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "request body must be a json object",
		},
		{
			name:       "fractional closure flag",
			body:       `{"distance_m": 1000, "base_time_sec": 120, "is_thursday": 1.5}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "field is_thursday must be int, got number 1.5",
		},
		{
			name:       "distance as string",
			body:       `{"distance_m": "far", "base_time_sec": 120}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "field distance_m must be float64, got string",
		},
		{
			name:       "malformed json",
			body:       `{"distance_m": }`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "malformed json",
		},
		{
			name:       "model unavailable",
			body:       `{"distance_m": 1000, "base_time_sec": 120, "is_thursday": 1}`,
			predictErr: util.WrapErrorf(estimator.ErrModelLoad, util.ErrModelUnavailable, "model file is not available"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "model_unavailable",
		},
		{
			name:       "prediction failure",
			body:       `{"distance_m": 1000, "base_time_sec": 120}`,
			predictErr: util.WrapErrorf(estimator.ErrPrediction, util.ErrInternalServerError, "prediction failed"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
			wantMsg:    "prediction failed",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			prediction := &fakePrediction{err: tt.predictErr}
			h := newHandler(&fakeTraining{}, prediction, &fakeQuote{})

			rec, resp := serve(t, h, http.MethodPost, "/api/predict", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.False(t, resp.Success)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				assert.NotEmpty(t, resp.Error.Message)
				assert.Contains(t, resp.Error.Message, tt.wantMsg)
				if tt.wantCode == "internal_error" {
					assert.NotContains(t, resp.Error.Message, estimator.ErrPrediction.Error())
				}
				return
			}

			assert.True(t, resp.Success)
			var data struct {
				Sec float64 `json:"predicted_time_sec"`
				Min float64 `json:"predicted_time_min"`
			}
			require.NoError(t, json.Unmarshal(resp.Data, &data))
			assert.InDelta(t, tt.wantSec, data.Sec, 1e-9)
			assert.Equal(t, tt.wantMin, data.Min)
			assert.Equal(t, util.RoundFloat(data.Sec/60, 2), data.Min)
			require.Len(t, prediction.rows, 1)
			assert.Equal(t, tt.wantFlag, prediction.rows[0].ClosureFlag)
		})
	}
}

func TestTrain(t *testing.T) {
	testCases := []struct {
		name       string
		training   *fakeTraining
		wantStatus int
		wantCode   string
	}{
		{
			name: "trained",
			training: &fakeTraining{report: usecases.TrainingReport{
				AreaRef:   "test area",
				Records:   80,
				Attempts:  93,
				Estimator: estimator.KindKNN,
				Metrics:   estimator.Metrics{MAE: 12.5, RMSE: 20, TrainSize: 60, TestSize: 20},
			}},
			wantStatus: http.StatusOK,
		},
		{
			name: "already running",
			training: &fakeTraining{
				err: util.WrapErrorf(usecases.ErrTrainingInProgress, util.ErrConflict, "training already running"),
			},
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name: "pipeline failure",
			training: &fakeTraining{
				err: util.WrapErrorf(errors.New("load road graph: boom"), util.ErrInternalServerError, "training failed"),
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(tt.training, &fakePrediction{}, &fakeQuote{})
			rec, resp := serve(t, h, http.MethodPost, "/api/train", "")
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				return
			}

			assert.True(t, resp.Success)
			assert.Equal(t, "model trained", resp.Message)
			var data map[string]any
			require.NoError(t, json.Unmarshal(resp.Data, &data))
			assert.Equal(t, "test area", data["area"])
			assert.Equal(t, 80.0, data["records"])
			assert.Equal(t, 12.5, data["mae"])
			assert.Equal(t, "knn", data["estimator"])
		})
	}
}

func TestQuote(t *testing.T) {
	found := &fakeQuote{quote: usecases.Quote{
		Origin:      1,
		Destination: 2,
		DistanceM:   500,
		BaseTimeSec: 60,
		Prediction:  estimator.NewPrediction(75),
		Polyline:    "_p~iF~ps|U_ulLnnqC",
	}}
	const valid = "/api/quote?origin_lat=-16.5&origin_lon=-68.19&destination_lat=-16.49&destination_lon=-68.18"

	testCases := []struct {
		name       string
		quote      *fakeQuote
		target     string
		wantStatus int
		wantCode   string
	}{
		{name: "found", quote: found, target: valid + "&is_thursday=1", wantStatus: http.StatusOK},
		{name: "missing coordinate", quote: found, target: "/api/quote?origin_lat=-16.5", wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "latitude out of range", quote: found, target: "/api/quote?origin_lat=-96.5&origin_lon=-68.19&destination_lat=-16.49&destination_lon=-68.18", wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "bad closure flag", quote: found, target: valid + "&is_thursday=2", wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{
			name:       "no path",
			quote:      &fakeQuote{err: util.WrapErrorf(usecases.ErrPathNotFound, util.ErrNotFound, "no path found")},
			target:     valid,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "network not loaded",
			quote:      &fakeQuote{err: util.WrapErrorf(usecases.ErrNetworkUnavailable, util.ErrModelUnavailable, "road network is not loaded")},
			target:     valid,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "model_unavailable",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&fakeTraining{}, &fakePrediction{}, tt.quote)
			rec, resp := serve(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				return
			}

			var data map[string]any
			require.NoError(t, json.Unmarshal(resp.Data, &data))
			assert.Equal(t, 1.0, data["origin_node"])
			assert.Equal(t, 2.0, data["destination_node"])
			assert.Equal(t, 1.0, data["is_thursday"])
			assert.Equal(t, 75.0, data["predicted_time_sec"])
			assert.Equal(t, 1.25, data["predicted_time_min"])
			assert.Equal(t, "_p~iF~ps|U_ulLnnqC", data["path"])
		})
	}
}

func TestHealth(t *testing.T) {
	h := newHandler(&fakeTraining{}, &fakePrediction{}, &fakeQuote{})

	rec, resp := serve(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "navigatorx-eta", data["service"])
	assert.NotEmpty(t, data["timestamp"])

	rec, _ = serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ".", rec.Body.String())
}

func TestMiddleware(t *testing.T) {
	h := newHandler(&fakeTraining{}, &fakePrediction{}, &fakeQuote{})

	t.Run("non json body is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader("distance_m=1000"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("request id is generated", func(t *testing.T) {
		rec, _ := serve(t, h, http.MethodGet, "/api/health", "")
		assert.Len(t, rec.Header().Get("X-Request-ID"), 16)
	})

	t.Run("request id is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("X-Request-ID", "abc123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("panics become 500", func(t *testing.T) {
		api := NewAPI(zap.NewNop())
		panicking := api.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "boom")
	})

	t.Run("real ip", func(t *testing.T) {
		var got string
		handler := RealIP(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = r.RemoteAddr
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "10.0.0.1", got)
	})
}

func TestLimit(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("RATE_LIMIT_RPS", 1)
	viper.Set("RATE_LIMIT_BURST", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := Limit(ctx)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name       string
		remoteAddr string
		wantStatus int
	}{
		{name: "first request", remoteAddr: "10.0.0.1:4000", wantStatus: http.StatusOK},
		{name: "burst exhausted", remoteAddr: "10.0.0.1:4001", wantStatus: http.StatusTooManyRequests},
		{name: "other client", remoteAddr: "10.0.0.2:4000", wantStatus: http.StatusOK},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRateLimiterSweep(t *testing.T) {
	l := &ipRateLimiter{clients: map[string]*client{
		"10.0.0.1": {lastSeen: time.Now().Add(-time.Hour)},
		"10.0.0.2": {lastSeen: time.Now().Add(time.Hour)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.sweep(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, stale := l.clients["10.0.0.1"]
		_, fresh := l.clients["10.0.0.2"]
		return !stale && fresh
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after the context was canceled")
	}
}
