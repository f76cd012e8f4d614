package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReplySuccess(t *testing.T) {
	t.Parallel()
	var gotAuth string
	var gotReq struct {
		Model    string `json:"model"`
		Messages []Turn `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "  Arey beta, which account?  "}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", 0.7, 256, 5*time.Second)
	reply, err := c.Reply(context.Background(), "be the persona", []Turn{{Role: "user", Content: "hi"}}, "send money")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply != "Arey beta, which account?" {
		t.Fatalf("reply = %q", reply)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Fatalf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 3 {
		t.Fatalf("messages = %d, want 3 (system + history + current)", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[2].Content != "send money" {
		t.Fatalf("unexpected message order: %+v", gotReq.Messages)
	}
}

func TestReplyNonOKStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m", 0, 0, 5*time.Second)
	_, err := c.Reply(context.Background(), "sys", nil, "msg")
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("err = %v, want ErrBadResponse", err)
	}
	if got := FallbackFor(err); got != FallbackBadResponse {
		t.Fatalf("fallback = %q", got)
	}
}

func TestReplyEmptyChoices(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m", 0, 0, 5*time.Second)
	_, err := c.Reply(context.Background(), "sys", nil, "msg")
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("err = %v, want ErrBadResponse", err)
	}
}

func TestReplyTransportFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "k", "m", 0, 0, time.Second)
	_, err := c.Reply(context.Background(), "sys", nil, "msg")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, ErrBadResponse) {
		t.Fatalf("transport failure misclassified as bad response: %v", err)
	}
	if got := FallbackFor(err); got != FallbackRequestFailed {
		t.Fatalf("fallback = %q", got)
	}
}
