package fetch

import (
	"context"
	"io"
	"net/http"
	"testing"
)

func TestNewAuth(t *testing.T) {
	tests := []struct {
		kind    string
		name    string
		wantErr bool
	}{
		{"basic", "user", false},
		{"bearer", "", false},
		{"", "", false},
		{"header", "X-Api-Key", false},
		{"query", "key", false},
		{"digest", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			_, err := NewAuth(tt.kind, tt.name, "s3cret")
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDo_Auth(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("Authorization")+"|"+r.Header.Get("X-Api-Key")+"|"+r.URL.Query().Get("key"))
	})

	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"none", nil, "||"},
		{"bearer for host", []Option{WithAuth("127.0.0.1", &BearerAuth{Token: "t1"})}, "Bearer t1||"},
		{"other host", []Option{WithAuth("example.test", &BearerAuth{Token: "t1"})}, "||"},
		{"any host", []Option{WithAuth("", &APIKeyAuth{Key: "X-Api-Key", Value: "k", InHeader: true})}, "|k|"},
		{"query", []Option{WithAuth("", &APIKeyAuth{Key: "key", Value: "q"})}, "||q"},
		{"basic", []Option{WithAuth("127.0.0.1", &BasicAuth{Username: "u", Password: "p"})}, "Basic dTpw||"},
		{
			"host wins over default",
			[]Option{
				WithAuth("", &BearerAuth{Token: "default"}),
				WithAuth("127.0.0.1", &BearerAuth{Token: "specific"}),
			},
			"Bearer specific||",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := noRetry(srv, tt.opts...)
			got, err := c.Do(context.Background(), Request{URL: srv.URL + "/x"})
			if err != nil {
				t.Fatalf("Do failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
