package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/content/thoughts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "content-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"slug":"first-light"},{"slug":"night-shift"}]`))
	})
	mux.HandleFunc("/api/v1/content/thoughts/first-light", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"slug":"first-light","meta":{"date":"2024-03-01","title":"First light","mood":"hopeful"},"content":"The sun came up."}`))
	})
	mux.HandleFunc("/api/v1/content/thoughts/night-shift", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"slug":"night-shift","meta":{"date":"2024-03-02","title":"Night shift","mood":null},"content":"Still awake."}`))
	})
	mux.HandleFunc("/api/v1/content/thoughts/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListThoughts(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL+"/", "content-key")

	thoughts, err := c.ListThoughts(context.Background())
	if err != nil {
		t.Fatalf("ListThoughts() error = %v", err)
	}
	if len(thoughts) != 2 {
		t.Fatalf("len(thoughts) = %d, want 2", len(thoughts))
	}
	if thoughts[0].Slug != "first-light" || thoughts[1].Slug != "night-shift" {
		t.Errorf("slugs = %+v, want list order", thoughts)
	}
}

func TestListThoughts_WrongKey(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, "wrong")

	_, err := c.ListThoughts(context.Background())
	if err == nil {
		t.Fatal("ListThoughts() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error = %v, want status 401", err)
	}
}

func TestGetThought(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, "content-key")

	got, err := c.GetThought(context.Background(), "first-light")
	if err != nil {
		t.Fatalf("GetThought() error = %v", err)
	}
	if got.Content != "The sun came up." {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Meta.Mood == nil || *got.Meta.Mood != "hopeful" {
		t.Errorf("Mood = %v, want hopeful", got.Meta.Mood)
	}

	got, err = c.GetThought(context.Background(), "night-shift")
	if err != nil {
		t.Fatalf("GetThought() error = %v", err)
	}
	if got.Meta.Mood != nil {
		t.Errorf("Mood = %v, want nil for null", *got.Meta.Mood)
	}
}

func TestGetThought_NonSuccess(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, "content-key")

	_, err := c.GetThought(context.Background(), "broken")
	if err == nil {
		t.Fatal("GetThought() error = nil, want error")
	}
	if err.Error() != "fetch thought broken: status 500" {
		t.Errorf("error = %q", err.Error())
	}

	if _, err := c.GetThought(context.Background(), "missing"); err == nil {
		t.Error("GetThought(missing) error = nil, want 404 error")
	}
}

func TestClient_NotConfigured(t *testing.T) {
	for _, c := range []*Client{NewClient("", "key"), NewClient("http://x", ""), NewClient(" ", " ")} {
		if c.Configured() {
			t.Error("Configured() = true, want false")
		}
		if _, err := c.ListThoughts(context.Background()); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("ListThoughts() error = %v, want ErrNotConfigured", err)
		}
		if _, err := c.GetThought(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("GetThought() error = %v, want ErrNotConfigured", err)
		}
	}
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").ListThoughts(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Errorf("error = %v, want decode error", err)
	}
}
