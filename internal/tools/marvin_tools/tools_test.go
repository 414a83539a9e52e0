package marvin_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/server"
	"github.com/teemow/marvin-mcp/internal/tools/common"
)

const testToken = "test-token-1234567890"

type upstreamRequest struct {
	Method string
	Path   string
	Query  string
	Token  string
	Body   map[string]any
}

type fakeUpstream struct {
	mu       sync.Mutex
	requests []upstreamRequest
	status   int
	body     string
}

func (f *fakeUpstream) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.body = body
}

func (f *fakeUpstream) all() []upstreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upstreamRequest(nil), f.requests...)
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := upstreamRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Token:  r.Header.Get(marvin.HeaderAPIToken),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	status, body := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestServerContext(t *testing.T, limit int) (*server.ServerContext, *fakeUpstream) {
	t.Helper()
	upstream := &fakeUpstream{}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	sc, err := server.NewServerContext(context.Background(), server.Options{
		Client:        marvin.NewClient(marvin.ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()}),
		ResponseLimit: limit,
		Now: func() time.Time {
			return time.Date(2024, time.March, 15, 22, 0, 0, 0, time.UTC)
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, upstream
}

func authed() context.Context {
	return marvin.WithCredentials(context.Background(), marvin.Credentials{APIToken: testToken})
}

func call(ctx context.Context, t *testing.T, handler common.ToolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(ctx, req)
	require.NoError(t, err, "tool handlers report failures as results")
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestRegisterMarvinTools(t *testing.T) {
	sc, _ := newTestServerContext(t, 0)
	s := mcpserver.NewMCPServer("marvin-mcp-test", "test", mcpserver.WithToolCapabilities(true))

	require.NoError(t, RegisterMarvinTools(s, sc))
	assert.Error(t, RegisterMarvinTools(nil, sc))
	assert.Error(t, RegisterMarvinTools(s, nil))

	response := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				Annotations struct {
					Title          string `json:"title"`
					ReadOnlyHint   *bool  `json:"readOnlyHint"`
					IdempotentHint *bool  `json:"idempotentHint"`
				} `json:"annotations"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	require.Len(t, decoded.Result.Tools, len(ToolNames))

	byName := map[string]int{}
	for i, tool := range decoded.Result.Tools {
		byName[tool.Name] = i
	}
	for _, name := range ToolNames {
		assert.Contains(t, byName, name)
	}

	labels := decoded.Result.Tools[byName[ToolLabels]]
	assert.Equal(t, "List All Labels", labels.Annotations.Title)
	require.NotNil(t, labels.Annotations.ReadOnlyHint)
	assert.True(t, *labels.Annotations.ReadOnlyHint)

	add := decoded.Result.Tools[byName[ToolAddTask]]
	require.NotNil(t, add.Annotations.ReadOnlyHint)
	assert.False(t, *add.Annotations.ReadOnlyHint)
	require.NotNil(t, add.Annotations.IdempotentHint)
	assert.False(t, *add.Annotations.IdempotentHint)
}

func TestTodaysTasks_DefaultsToToday(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusOK, `[{"_id":"t1","title":"Review budget","done":false,"timeEstimate":3600000}]`)

	result := call(authed(), t, handleTodaysTasks(sc), map[string]any{})
	require.False(t, result.IsError, resultText(t, result))

	requests := upstream.all()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, marvin.EndpointTodayItems, requests[0].Path)
	assert.Equal(t, "date=2024-03-15", requests[0].Query)
	assert.Equal(t, testToken, requests[0].Token)

	text := resultText(t, result)
	assert.Contains(t, text, "# Today's Tasks (2024-03-15)")
	assert.Contains(t, text, "- **Estimate**: 1h")
}

func TestTodaysTasks_EmptyJSON(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusOK, `[]`)

	result := call(authed(), t, handleTodaysTasks(sc), map[string]any{"date": "2024-12-25", "response_format": "json"})
	require.False(t, result.IsError)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &doc))
	assert.Equal(t, "2024-12-25", doc["date"])
	assert.Equal(t, float64(0), doc["total"])
}

func TestDueTasks_SendsReferenceDate(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	upstream.respond(http.StatusOK, fmt.Sprintf(`[{"_id":"t1","title":"Taxes","dueDate":%d}]`, due))

	result := call(authed(), t, handleDueTasks(sc), map[string]any{"date": "2024-03-10"})
	require.False(t, result.IsError)

	requests := upstream.all()
	require.Len(t, requests, 1)
	assert.Equal(t, marvin.EndpointDueItems, requests[0].Path)
	assert.Equal(t, "by=2024-03-10", requests[0].Query)
	assert.Contains(t, resultText(t, result), "## ⬜ Taxes [OVERDUE]")
	assert.Contains(t, resultText(t, result), "- **Days Overdue**: 9")
}

func TestAddTask(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusOK, `{"_id":"new1","title":"Review budget","day":"2024-03-15","timeEstimate":1800000}`)

	result := call(authed(), t, handleAddTask(sc), map[string]any{
		"title":         "Review budget #Work @urgent",
		"day":           "2024-03-15",
		"label_ids":     []any{"l1"},
		"time_estimate": 1800000.0,
	})
	require.False(t, result.IsError, resultText(t, result))

	requests := upstream.all()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, marvin.EndpointAddTask, requests[0].Path)
	assert.Equal(t, "Review budget #Work @urgent", requests[0].Body["title"])
	assert.Equal(t, false, requests[0].Body["done"])
	assert.Equal(t, []any{"l1"}, requests[0].Body["labelIds"])
	assert.Equal(t, float64(1800000), requests[0].Body["timeEstimate"])

	text := resultText(t, result)
	assert.Contains(t, text, "✅ Task created successfully!")
	assert.Contains(t, text, "**ID**: new1")
	assert.Contains(t, text, "**Scheduled**: 2024-03-15")
	assert.Contains(t, text, "**Time Estimate**: 30m")
}

func TestAddTask_UndecodableResponseFallsBackToInput(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusOK, `OK`)

	result := call(authed(), t, handleAddTask(sc), map[string]any{"title": "Call dentist", "response_format": "json"})
	require.False(t, result.IsError, resultText(t, result))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &doc))
	assert.Equal(t, "created", doc["status"])
	assert.Equal(t, "Call dentist", doc["title"])
	assert.Equal(t, "N/A", doc["id"])
}

func TestInvalidArguments_NoUpstreamCall(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)

	tests := []struct {
		name    string
		handler common.ToolHandler
		args    map[string]any
		wantMsg string
	}{
		{name: "add task without title", handler: handleAddTask(sc), args: map[string]any{}, wantMsg: "title is required"},
		{name: "today with bad date", handler: handleTodaysTasks(sc), args: map[string]any{"date": "today"}, wantMsg: "date must be in YYYY-MM-DD"},
		{name: "mark done without id", handler: handleMarkDone(sc), args: map[string]any{}, wantMsg: "item_id is required"},
		{name: "children without parent", handler: handleChildren(sc), args: map[string]any{}, wantMsg: "parent_id is required"},
		{name: "labels with bad format", handler: handleLabels(sc), args: map[string]any{"response_format": "yaml"}, wantMsg: "response_format must be one of"},
		{name: "start without id", handler: handleStartTracking(sc), args: map[string]any{"item_id": ""}, wantMsg: "item_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(authed(), t, tt.handler, tt.args)
			require.True(t, result.IsError)
			text := resultText(t, result)
			assert.True(t, strings.HasPrefix(text, "Error: Invalid input - "), text)
			assert.Contains(t, text, tt.wantMsg)
		})
	}
	assert.Empty(t, upstream.all())
}

func TestMissingCredentials_NoUpstreamCall(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)

	ctx, outcome := common.WithOutcome(context.Background())
	result := call(ctx, t, handleCategories(sc), map[string]any{})

	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "No Amazing Marvin API token")
	assert.Equal(t, marvin.KindAuthInvalid.String(), outcome.ErrorKind())
	assert.Empty(t, upstream.all())
}

func TestMarkDone_AlreadyDoneSucceeds(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusConflict, `{"error":"already done"}`)

	result := call(authed(), t, handleMarkDone(sc), map[string]any{"item_id": "t1"})
	require.False(t, result.IsError, resultText(t, result))
	assert.Equal(t, "✅ Task marked as complete!\n\n**Task ID**: t1", resultText(t, result))

	requests := upstream.all()
	require.Len(t, requests, 1)
	assert.Equal(t, map[string]any{"itemId": "t1"}, requests[0].Body)
}

func TestTracking(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusOK, `OK`)

	result := call(authed(), t, handleStartTracking(sc), map[string]any{"item_id": "t1"})
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "Any previously running timer has been stopped.")

	upstream.respond(http.StatusBadRequest, `No timer running`)
	result = call(authed(), t, handleStopTracking(sc), map[string]any{})
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "⏱️ Timer stopped successfully!")

	requests := upstream.all()
	require.Len(t, requests, 2)
	assert.Equal(t, map[string]any{"itemId": "t1", "action": "START"}, requests[0].Body)
	assert.Equal(t, map[string]any{"action": "STOP"}, requests[1].Body)
	for _, req := range requests {
		assert.Equal(t, marvin.EndpointTrack, req.Path)
	}
}

func TestChildren_NotFound(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusNotFound, `not found`)

	ctx, outcome := common.WithOutcome(authed())
	result := call(ctx, t, handleChildren(sc), map[string]any{"parent_id": "missing"})

	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Resource not found")
	assert.Equal(t, marvin.KindNotFound.String(), outcome.ErrorKind())

	requests := upstream.all()
	require.Len(t, requests, 1)
	assert.Equal(t, "parentId=missing", requests[0].Query)
}

func TestLabels_TruncatedToResponseLimit(t *testing.T) {
	sc, upstream := newTestServerContext(t, 1000)

	labels := make([]string, 100)
	for i := range labels {
		labels[i] = fmt.Sprintf(`{"_id":"label-%03d","title":"%s"}`, i, strings.Repeat("x", 40))
	}
	upstream.respond(http.StatusOK, "["+strings.Join(labels, ",")+"]")

	for _, format := range []string{"markdown", "json"} {
		t.Run(format, func(t *testing.T) {
			ctx, outcome := common.WithOutcome(authed())
			result := call(ctx, t, handleLabels(sc), map[string]any{"response_format": format})

			require.False(t, result.IsError)
			assert.True(t, outcome.Truncated())

			text := resultText(t, result)
			assert.LessOrEqual(t, len([]rune(text)), 1000)
			assert.Contains(t, text, "of 100 records")
			if format == "json" {
				assert.True(t, json.Valid([]byte(text)), text)
			}
		})
	}
}

func TestInstrumentedCall_ThroughServer(t *testing.T) {
	sc, upstream := newTestServerContext(t, 0)
	upstream.respond(http.StatusOK, `[{"_id":"l1","title":"urgent"}]`)

	s := mcpserver.NewMCPServer("marvin-mcp-test", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterMarvinTools(s, sc))

	msg := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"marvin_get_labels","arguments":{"response_format":"json"}}}`
	response := s.HandleMessage(authed(), json.RawMessage(msg))
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `urgent`)
	assert.NotContains(t, string(raw), `"isError":true`)
	assert.Len(t, upstream.all(), 1)
}
