package roboflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"wound-measure/internal/domain/entity"
)

const sampleResponse = `{
  "outputs": [
    {
      "predictions": {
        "image": {"width": 640, "height": 480},
        "predictions": [
          {"class": "ulcer", "class_id": 0, "confidence": 0.91,
           "points": [{"x": 0, "y": 0}, {"x": 10, "y": 0}, {"x": 10, "y": 20}, {"x": 0, "y": 20}]},
          {"class": "sticker", "class_id": 1, "confidence": 0.88,
           "points": [{"x": 100, "y": 100}, {"x": 110, "y": 100}, {"x": 110, "y": 110}, {"x": 100, "y": 110}]},
          {"class": "shoe", "class_id": 7, "confidence": 0.5,
           "points": [{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 1, "y": 1}]}
        ]
      }
    },
    {"predictions": {"image": {"width": 640, "height": 480}, "predictions": []}}
  ]
}`

func newTestClient(t *testing.T, srv *httptest.Server, retries int) *Client {
	t.Helper()
	return NewClient(Config{
		APIURL:     srv.URL + "/",
		APIKey:     "secret",
		Workspace:  "woundly",
		Workflow:   "custom-workflow-fze",
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	}, srv.Client(), zaptest.NewLogger(t))
}

func TestClient_Detect(t *testing.T) {
	image := []byte("fake-jpeg")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/infer/workflows/woundly/custom-workflow-fze", r.URL.Path)

		var req workflowRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "secret", req.APIKey)
		require.Equal(t, "base64", req.Inputs["image"].Type)
		require.Equal(t, base64.StdEncoding.EncodeToString(image), req.Inputs["image"].Value)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	batches, err := newTestClient(t, srv, 0).Detect(context.Background(), image)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 2)
	require.Empty(t, batches[1])

	require.Equal(t, entity.ClassTarget, batches[0][0].Class)
	require.Equal(t, 200.0, batches[0][0].Polygon.Area())
	require.Equal(t, entity.ClassReferenceMarker, batches[0][1].Class)
	require.Equal(t, 100.0, batches[0][1].Polygon.Area())
}

func TestClient_DetectRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	batches, err := newTestClient(t, srv, 2).Detect(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DetectAuthFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 3).Detect(context.Background(), []byte("img"))
	require.ErrorIs(t, err, entity.ErrDetectionUnavailable)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.Code)
	require.Contains(t, statusErr.Body, "invalid api key")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_DetectMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"something": "else"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).Detect(context.Background(), []byte("img"))
	require.ErrorIs(t, err, entity.ErrDetectionUnavailable)
}

func TestClient_DetectUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, srv, 1)
	srv.Close()

	_, err := client.Detect(context.Background(), []byte("img"))
	require.ErrorIs(t, err, entity.ErrDetectionUnavailable)
}

func TestClient_DetectEmptyImage(t *testing.T) {
	client := NewClient(Config{APIURL: "http://127.0.0.1:1"}, nil, nil)
	_, err := client.Detect(context.Background(), nil)
	require.ErrorIs(t, err, entity.ErrDetectionUnavailable)
}

func TestClient_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv, 0).CheckHealth(context.Background()))
}

func TestClassLabel(t *testing.T) {
	require.Equal(t, entity.ClassTarget, classLabel(0))
	require.Equal(t, entity.ClassReferenceMarker, classLabel(1))
	require.Equal(t, entity.ClassUnknown, classLabel(2))
}

func TestClient_DetectMalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "output without predictions",
			body: `{"outputs": [{"unexpected": 1}]}`,
		},
		{
			name: "prediction without class_id",
			body: `{"outputs": [{"predictions": {"predictions": [
				{"class": "ulcer", "points": [{"x": 0, "y": 0}, {"x": 10, "y": 0}, {"x": 10, "y": 10}]}
			]}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			batches, err := newTestClient(t, srv, 2).Detect(context.Background(), []byte("img"))
			require.ErrorIs(t, err, entity.ErrDetectionUnavailable)
			require.NotErrorIs(t, err, entity.ErrNoReferenceDetected)
			require.Nil(t, batches)
			require.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestClient_DetectAcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	batches, err := newTestClient(t, srv, 0).Detect(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, batches, 2)
}

func TestWorkflowResponse_ToBatches(t *testing.T) {
	ulcer, sticker := 0, 1
	resp := workflowResponse{Outputs: []workflowOutput{{Predictions: &predictionSet{Predictions: []prediction{
		{ClassID: &ulcer, Points: []point{{0, 0}, {4, 0}, {0, 3}}},
		{ClassID: &sticker, Points: []point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}},
	}}}}}

	batches, err := resp.toBatches()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, 6.0, batches[0][0].Polygon.Area())
	require.Equal(t, entity.ClassReferenceMarker, batches[0][1].Class)

	resp.Outputs[0].Predictions.Predictions[0].ClassID = nil
	_, err = resp.toBatches()
	require.Error(t, err)
}
