package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *memoryCache) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryCache) Set(key string, content []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = content
	return nil
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func noRetry(srv *httptest.Server, opts ...Option) *Client {
	return New(append([]Option{WithHTTPClient(srv.Client()), WithRetry(nil)}, opts...)...)
}

func TestDo_Get(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		_, _ = io.WriteString(w, "hello "+r.URL.Path)
	})

	got, err := noRetry(srv).Do(context.Background(), Request{URL: srv.URL + "/a"})
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if got != "hello /a" {
		t.Errorf("Expected body, got %q", got)
	}
}

func TestDo_PostBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = io.WriteString(w, r.Method+" "+string(body))
	})

	got, err := noRetry(srv).Do(context.Background(), Request{Method: "post", URL: srv.URL, Body: "a=1"})
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if got != "POST a=1" {
		t.Errorf("Expected echoed body, got %q", got)
	}
}

func TestDo_StatusError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := noRetry(srv).Do(context.Background(), Request{URL: srv.URL})
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Status != http.StatusNotFound {
		t.Fatalf("Expected 404 StatusError, got %v", err)
	}
}

func TestDo_Cache(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, "cached")
	})
	store := &memoryCache{items: map[string][]byte{}}
	c := noRetry(srv, WithCache(store, time.Minute))

	for i := 0; i < 3; i++ {
		if got, err := c.Do(context.Background(), Request{URL: srv.URL}); err != nil || got != "cached" {
			t.Fatalf("Do() = %q, %v", got, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected one network request, got %d", calls.Load())
	}
}

func TestDo_SharesInFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = io.WriteString(w, "once")
	})
	c := noRetry(srv)

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Do(context.Background(), Request{URL: srv.URL})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != "once" {
			t.Errorf("result %d = %q", i, r)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected requests to be collapsed, got %d", calls.Load())
	}
}

func TestDo_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	})
	c := New(WithHTTPClient(srv.Client()), WithRetry(&RetryConfig{
		MaxAttempts: 3,
		Backoff:     &ExponentialBackoff{BaseDelay: time.Millisecond},
		RetryIf:     DefaultRetryCondition,
	}))

	got, err := c.Do(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if got != "ok" || calls.Load() != 3 {
		t.Errorf("Expected success on third attempt, got %q after %d", got, calls.Load())
	}
}

func TestDo_RelativeToBaseURL(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	})

	got, err := noRetry(srv, WithBase(srv.URL+"/pages/")).Do(context.Background(), Request{URL: "data.json"})
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if got != "/pages/data.json" {
		t.Errorf("Expected resolved path, got %q", got)
	}
}

func TestDo_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "vars.json"), []byte(`{"n":1}`), 0644); err != nil {
		t.Fatal(err)
	}
	c := New(WithBase(dir))

	got, err := c.Do(context.Background(), Request{URL: "vars.json"})
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if got != `{"n":1}` {
		t.Errorf("Expected file content, got %q", got)
	}

	got, err = c.Do(context.Background(), Request{URL: "file://" + filepath.ToSlash(filepath.Join(dir, "vars.json"))})
	if err != nil || got != `{"n":1}` {
		t.Errorf("Expected file URL to be read, got %q, %v", got, err)
	}

	if _, err := c.Do(context.Background(), Request{Method: "POST", URL: "vars.json"}); err == nil {
		t.Error("Expected POST to a local file to fail")
	}
	if _, err := c.Do(context.Background(), Request{URL: "ftp://example.com/x"}); err == nil {
		t.Error("Expected unsupported scheme to fail")
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := &ExponentialBackoff{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	if d := b.NextDelay(0); d != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got %v", d)
	}
	if d := b.NextDelay(2); d != 400*time.Millisecond {
		t.Errorf("Expected 400ms, got %v", d)
	}
	if d := b.NextDelay(10); d != time.Second {
		t.Errorf("Expected cap at 1s, got %v", d)
	}
}
