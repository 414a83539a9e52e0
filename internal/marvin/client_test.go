package marvin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token-1234567890"

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Token  string
	Body   map[string]any
}

type requestLog struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (l *requestLog) add(req recordedRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest(nil), l.requests...)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *requestLog) {
	t.Helper()
	requests := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Token:  r.Header.Get(HeaderAPIToken),
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		requests.add(rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	return client, requests
}

func authed() context.Context {
	return WithCredentials(context.Background(), Credentials{APIToken: testToken})
}

func TestExecute_SendsTokenAndReturnsBody(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"l1","title":"urgent"}]`))
	})

	labels, err := client.Labels(authed())
	require.NoError(t, err)
	require.Len(t, requests.all(), 1)

	req := requests.all()[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/labels", req.Path)
	assert.Equal(t, testToken, req.Token)
	assert.Equal(t, []Label{{ID: "l1", Title: "urgent"}}, labels)
}

func TestExecute_MissingCredentialsMakesNoCall(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	_, err := client.Categories(context.Background())
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, KindAuthInvalid, Classify(err).Kind)
	assert.Empty(t, requests.all())
}

func TestExecute_ShortCredentialsMakesNoCall(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	ctx := WithCredentials(context.Background(), Credentials{APIToken: "short"})
	_, err := client.Labels(ctx)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, KindAuthInvalid, Classify(err).Kind)
	assert.Empty(t, requests.all())
}

func TestExecute_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindAuthInvalid},
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusBadGateway, KindUpstreamUnavailable},
		{http.StatusTeapot, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			})

			_, err := client.Children(authed(), "p1")
			require.Error(t, err)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "nope", statusErr.Body)
			assert.Equal(t, tt.want, Classify(err).Kind)
			assert.Len(t, requests.all(), 1, "no retries")
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client(), Timeout: 50 * time.Millisecond})

	_, err := client.Labels(authed())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, Classify(err).Kind)
}

func TestExecute_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{BaseURL: url, Timeout: time.Second})

	_, err := client.Labels(authed())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, Classify(err).Kind)
	assert.Contains(t, Classify(err).Message, "Cannot connect")
}

func TestExecute_ResponseTooLarge(t *testing.T) {
	oversized := strings.Repeat("x", maxResponseBody+1)

	tests := []struct {
		name     string
		status   int
		wantKind ErrorKind
		check    func(t *testing.T, err error)
	}{
		{
			name:     "success body over limit",
			status:   http.StatusOK,
			wantKind: KindUnknown,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrResponseTooLarge)
				assert.Contains(t, Classify(err).Message, "narrow the request")
			},
		},
		{
			name:     "error status keeps its classification",
			status:   http.StatusNotFound,
			wantKind: KindNotFound,
			check: func(t *testing.T, err error) {
				assert.NotErrorIs(t, err, ErrResponseTooLarge)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, oversized)
			})

			_, err := client.Labels(authed())
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, Classify(err).Kind)
			tt.check(t, err)
		})
	}
}

func TestExecute_BodyAtLimitIsAccepted(t *testing.T) {
	body := "[" + strings.Repeat(" ", maxResponseBody-2) + "]"
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	})

	labels, err := client.Labels(authed())
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestExecute_InvalidRequest(t *testing.T) {
	client := NewClient(ClientConfig{})

	tests := []Request{
		{Method: http.MethodGet, Endpoint: ""},
		{Method: http.MethodGet, Endpoint: "labels"},
		{Method: http.MethodDelete, Endpoint: "/labels"},
		{Method: http.MethodGet, Endpoint: "/labels", Body: map[string]string{"a": "b"}},
	}
	for _, req := range tests {
		_, err := client.Execute(authed(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "request %+v", req)
	}
}

func TestAddTask_Body(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"_id":"t1","title":"Buy milk","day":"2024-03-15","timeEstimate":1800000}`))
	})

	starred := true
	task, err := client.AddTask(authed(), NewTask{
		Title:        "Buy milk #Errands",
		Day:          "2024-03-15",
		LabelIDs:     []string{"l1", "l2"},
		TimeEstimate: 1800000,
		IsStarred:    &starred,
	})
	require.NoError(t, err)
	require.Len(t, requests.all(), 1)

	req := requests.all()[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/addTask", req.Path)
	assert.Equal(t, "Buy milk #Errands", req.Body["title"])
	assert.Equal(t, false, req.Body["done"])
	assert.Equal(t, "2024-03-15", req.Body["day"])
	assert.Equal(t, []any{"l1", "l2"}, req.Body["labelIds"])
	assert.Equal(t, float64(1800000), req.Body["timeEstimate"])
	assert.Equal(t, true, req.Body["isStarred"])
	assert.NotContains(t, req.Body, "note")
	assert.NotContains(t, req.Body, "dueDate")

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, Millis(1800000), task.TimeEstimate)
}

func TestAddTask_NonJSONResponseFallsBackToInput(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	task, err := client.AddTask(authed(), NewTask{Title: "Call mom", DueDate: "2024-03-20"})
	require.NoError(t, err)
	assert.Equal(t, "Call mom", task.Title)
	assert.False(t, task.DueDate.IsZero())
}

func TestQueries(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	ctx := authed()

	today, err := client.TodayItems(ctx, "2024-03-15")
	require.NoError(t, err)
	assert.Empty(t, today)
	assert.NotNil(t, today)

	_, err = client.DueItems(ctx, "2024-03-16")
	require.NoError(t, err)
	_, err = client.Children(ctx, UnassignedParentID)
	require.NoError(t, err)

	require.Len(t, requests.all(), 3)
	assert.Equal(t, "/todayItems", requests.all()[0].Path)
	assert.Equal(t, "date=2024-03-15", requests.all()[0].Query)
	assert.Equal(t, "/dueItems", requests.all()[1].Path)
	assert.Equal(t, "by=2024-03-16", requests.all()[1].Query)
	assert.Equal(t, "/children", requests.all()[2].Path)
	assert.Equal(t, "parentId=unassigned", requests.all()[2].Query)
}

func TestMarkDone_Idempotent(t *testing.T) {
	var calls atomic.Int32
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) > 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("task already done"))
			return
		}
		_, _ = w.Write([]byte(""))
	})

	require.NoError(t, client.MarkDone(authed(), "t1"))
	require.NoError(t, client.MarkDone(authed(), "t1"))
	require.Len(t, requests.all(), 2)
	assert.Equal(t, map[string]any{"itemId": "t1"}, requests.all()[0].Body)
}

func TestMarkDone_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.MarkDone(authed(), "missing")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, Classify(err).Kind)
}

func TestTracking(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	ctx := authed()

	require.NoError(t, client.StartTracking(ctx, "t1"))
	require.NoError(t, client.StartTracking(ctx, "t2"))
	require.NoError(t, client.StopTracking(ctx))
	require.NoError(t, client.StopTracking(ctx))

	require.Len(t, requests.all(), 4)
	assert.Equal(t, map[string]any{"itemId": "t1", "action": "START"}, requests.all()[0].Body)
	assert.Equal(t, map[string]any{"itemId": "t2", "action": "START"}, requests.all()[1].Body)
	assert.Equal(t, map[string]any{"action": "STOP"}, requests.all()[2].Body)
	for _, req := range requests.all() {
		assert.Equal(t, "/track", req.Path)
	}
}

func TestStopTracking_NothingRunning(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	assert.NoError(t, client.StopTracking(authed()))
}

func TestDecode_InvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	})

	_, err := client.Categories(authed())
	require.Error(t, err)
	assert.Equal(t, KindUnknown, Classify(err).Kind)
}

type fakeRecorder struct {
	calls []int
}

func (f *fakeRecorder) RecordUpstreamRequest(_ context.Context, _, _ string, statusCode int, _ time.Duration) {
	f.calls = append(f.calls, statusCode)
}

func TestExecute_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client(), Metrics: rec})

	_, _ = client.Labels(authed())
	assert.Equal(t, []int{http.StatusTooManyRequests}, rec.calls)
}
