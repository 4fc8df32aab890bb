package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campaign_feed/internal/api"
	"campaign_feed/internal/domain"
)

func TestPostSendsBodyAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/posts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req api.PostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Post{ID: "p1", Content: req.Content, Type: domain.PostTypePlayer})
	}))
	defer srv.Close()

	post, err := New(srv.URL+"/", time.Second).Post("Hello voters", []string{"economy"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if post.ID != "p1" || post.Content != "Hello voters" {
		t.Fatalf("post=%+v", post)
	}
}

func TestErrorStatusCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"previous post is still collecting reactions"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Post("again", nil)
	if err == nil || !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "still collecting") {
		t.Fatalf("err=%v", err)
	}
}

func TestStreamURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8092":       "ws://localhost:8092/ws",
		"https://feed.example.com/x/": "wss://feed.example.com/x/ws",
	}
	for base, want := range cases {
		got, err := New(base, 0).StreamURL()
		if err != nil || got != want {
			t.Fatalf("StreamURL(%s)=%q err=%v want=%q", base, got, err, want)
		}
	}
}
