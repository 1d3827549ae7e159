package secrets

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitAccount(t *testing.T) {
	tests := []struct {
		account   string
		namespace string
		key       string
	}{
		{"default:api_token", "default", "api_token"},
		{"prod:db-pass", "prod", "db-pass"},
		{"bare", "default", "bare"},
	}

	for _, tt := range tests {
		t.Run(tt.account, func(t *testing.T) {
			ns, key := splitAccount(tt.account)
			if ns != tt.namespace || key != tt.key {
				t.Errorf("Expected %s/%s, got %s/%s", tt.namespace, tt.key, ns, key)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(Service, "prod:token"); got != "dotpipe secret prod/token" {
		t.Errorf("Expected label, got %q", got)
	}
}

func TestCheckSize(t *testing.T) {
	if err := checkSize("default:k", strings.Repeat("x", maxBlobSize)); err != nil {
		t.Errorf("Expected the limit itself to pass, got %v", err)
	}

	err := checkSize("prod:k", strings.Repeat("x", maxBlobSize+1))
	if !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("Expected ErrValueTooLarge, got %v", err)
	}
	var serr *SecretError
	if !errors.As(err, &serr) || serr.Namespace != "prod" || serr.Key != "k" {
		t.Errorf("Expected SecretError for prod:k, got %+v", serr)
	}
}

func TestOwnAccount(t *testing.T) {
	tests := map[string]bool{
		"default:k":  true,
		indexAccount: false,
		"foreign":    false,
	}
	for account, want := range tests {
		if got := ownAccount(account); got != want {
			t.Errorf("ownAccount(%q): expected %v, got %v", account, want, got)
		}
	}
}
