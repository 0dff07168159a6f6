package line

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypractice/attendance-hub/internal/domain/shared"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type fakeLine struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeLine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
	f.mu.Unlock()

	if f.handler != nil {
		f.handler(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}

func newTestClient(t *testing.T, fake *fakeLine) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("token-123")
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 0
	return NewClient(cfg)
}

func TestClient_Reply(t *testing.T) {
	fake := &fakeLine{}
	client := newTestClient(t, fake)

	require.NoError(t, client.Reply(context.Background(), "rt-1", []string{"hello"}))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v2/bot/message/reply", req.Path)
	assert.Equal(t, "Bearer token-123", req.Auth)
	assert.Equal(t, "rt-1", req.Body["replyToken"])
	msgs := req.Body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"type": "text", "text": "hello"}, msgs[0])
}

func TestClient_ReplyRejectsTooManyMessages(t *testing.T) {
	client := newTestClient(t, &fakeLine{})
	err := client.Reply(context.Background(), "rt", []string{"1", "2", "3", "4", "5", "6"})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	assert.NoError(t, client.Reply(context.Background(), "rt", nil))
}

func TestClient_PushBatchesInOrder(t *testing.T) {
	fake := &fakeLine{}
	client := newTestClient(t, fake)

	texts := []string{"1", "2", "3", "4", "5", "6", "7"}
	require.NoError(t, client.Push(context.Background(), "Cgroup", texts))

	require.Len(t, fake.requests, 2)
	assert.Equal(t, "/v2/bot/message/push", fake.requests[0].Path)
	assert.Equal(t, "Cgroup", fake.requests[0].Body["to"])
	assert.Len(t, fake.requests[0].Body["messages"], 5)
	second := fake.requests[1].Body["messages"].([]any)
	require.Len(t, second, 2)
	assert.Equal(t, "6", second[0].(map[string]any)["text"])
}

func TestClient_MemberProfilePaths(t *testing.T) {
	fake := &fakeLine{handler: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"userId":"U1","displayName":"Alice"}`))
	}}
	client := newTestClient(t, fake)
	ctx := context.Background()

	p, err := client.MemberProfile(ctx, "Cgroup", "U1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)

	_, err = client.MemberProfile(ctx, "Rroom", "U1")
	require.NoError(t, err)

	assert.Equal(t, "/v2/bot/group/Cgroup/member/U1", fake.requests[0].Path)
	assert.Equal(t, "/v2/bot/room/Rroom/member/U1", fake.requests[1].Path)
}

func TestClient_MemberProfileNotFound(t *testing.T) {
	fake := &fakeLine{handler: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not found"}`))
	}}
	client := newTestClient(t, fake)

	_, err := client.MemberProfile(context.Background(), "Cgroup", "U404")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
	assert.True(t, IsNotFound(err))
	assert.Len(t, fake.requests, 1, "4xx must not be retried")
}

func TestClient_MemberCount(t *testing.T) {
	fake := &fakeLine{handler: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":12}`))
	}}
	client := newTestClient(t, fake)

	n, err := client.MemberCount(context.Background(), "Cgroup")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "/v2/bot/group/Cgroup/members/count", fake.requests[0].Path)

	_, err = client.MemberCount(context.Background(), "Uuser")
	assert.ErrorIs(t, err, shared.ErrInvalidChatID)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	calls := 0
	fake := &fakeLine{handler: func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}}
	client := newTestClient(t, fake)

	require.NoError(t, client.Push(context.Background(), "Cgroup", []string{"x"}))
	assert.Equal(t, 2, calls)
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	fake := &fakeLine{handler: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}}
	client := newTestClient(t, fake)

	err := client.Push(context.Background(), "Cgroup", []string{"x"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.ErrorIs(t, err, shared.ErrLineAPIUnavailable)
	assert.Len(t, fake.requests, 3)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := Sign("secret", body)

	assert.True(t, ValidSignature("secret", body, sig))
	assert.False(t, ValidSignature("other", body, sig))
	assert.False(t, ValidSignature("secret", []byte(`{"events":[{}]}`), sig))
	assert.False(t, ValidSignature("secret", body, ""))
	assert.False(t, ValidSignature("secret", body, "not base64!"))
	assert.False(t, ValidSignature("", body, sig))
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{"destination":"Ubot","events":[
		{"type":"message","replyToken":"rt","source":{"type":"group","groupId":"C1","userId":"U1"},
		 "message":{"id":"1","type":"text","text":"/done"}},
		{"type":"memberJoined","source":{"type":"room","roomId":"R1"},
		 "joined":{"members":[{"type":"user","userId":"U2"},{"type":"user","userId":"U3"}]}},
		{"type":"message","source":{"type":"user","userId":"U1"},"message":{"id":"2","type":"sticker"}}
	]}`)

	req, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Len(t, req.Events, 3)

	assert.True(t, req.Events[0].IsTextMessage())
	assert.Equal(t, "/done", req.Events[0].Text())
	assert.Equal(t, "C1", req.Events[0].Source.ChatID())

	assert.Equal(t, "R1", req.Events[1].Source.ChatID())
	assert.Equal(t, []string{"U2", "U3"}, req.Events[1].Joined.UserIDs())

	assert.False(t, req.Events[2].IsTextMessage())
	assert.False(t, req.Events[2].Source.IsMultiMember())

	_, err = ParseWebhook([]byte(`{not json`))
	assert.Error(t, err)
}

func TestChatKind(t *testing.T) {
	assert.Equal(t, SourceGroup, ChatKind("C123"))
	assert.Equal(t, SourceRoom, ChatKind("R123"))
	assert.Equal(t, SourceUser, ChatKind("U123"))
	assert.Equal(t, "", ChatKind("x"))
}
