package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tradon-app/tradon/internal/app/domain/chat"
)

func TestClientComplete(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Markets look choppy today."}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(nil, ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "sk-test",
		Model:   "meta-llama/llama-4-maverick",
		Referer: "https://tradon.example",
		Title:   "Tradon",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	reply, err := client.Complete(context.Background(), []chat.Message{
		{Role: chat.RoleSystem, Content: "You are a trading assistant."},
		{Role: chat.RoleUser, Content: "How is BTC doing?"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Markets look choppy today." {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotReferer != "https://tradon.example" || gotTitle != "Tradon" {
		t.Errorf("attribution headers = %q / %q", gotReferer, gotTitle)
	}
	if gotBody.Model != "meta-llama/llama-4-maverick" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if gotBody.MaxTokens != 500 {
		t.Errorf("max_tokens = %d, want default 500", gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[1].Content != "How is BTC doing?" {
		t.Errorf("messages not relayed verbatim: %+v", gotBody.Messages)
	}
}

func TestClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(nil, ClientConfig{BaseURL: srv.URL, Model: "m"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", upstream.Status)
	}
	if upstream.StatusText != "Unauthorized" {
		t.Errorf("statusText = %q", upstream.StatusText)
	}
	if upstream.Body == "" {
		t.Error("expected upstream body to be captured")
	}
}

func TestClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(nil, ClientConfig{BaseURL: srv.URL, Model: "m"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.Message != "completion API returned no choices" {
		t.Errorf("message = %q", upstream.Message)
	}
}

func TestClientConfigValidation(t *testing.T) {
	if _, err := NewClient(nil, ClientConfig{Model: "m"}, nil); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewClient(nil, ClientConfig{BaseURL: "https://x"}, nil); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestServiceReplyTimeout(t *testing.T) {
	svc := New(CompleterFunc(func(ctx context.Context, _ []chat.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), 10*time.Millisecond, nil)

	_, err := svc.Reply(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.Message != "completion API request timed out" {
		t.Errorf("message = %q", upstream.Message)
	}
}

func TestServiceReplyWithoutUpstream(t *testing.T) {
	svc := New(nil, 0, nil)
	_, err := svc.Reply(context.Background(), nil)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
}
