package fetch

import (
	"fmt"
	"net/http"
	"strings"
)

// Auth decorates an outgoing request with credentials
type Auth interface {
	Apply(req *http.Request)
}

// BasicAuth implements HTTP Basic Authentication
type BasicAuth struct {
	Username string
	Password string
}

// Apply sets the Authorization header
func (a *BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.Username, a.Password)
}

// BearerAuth implements Bearer token authentication
type BearerAuth struct {
	Token string
}

// Apply sets the Authorization header
func (a *BearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// APIKeyAuth sends a key in a header or in the query string
type APIKeyAuth struct {
	Key      string
	Value    string
	InHeader bool
}

// Apply adds the key to the request
func (a *APIKeyAuth) Apply(req *http.Request) {
	if a.InHeader {
		req.Header.Set(a.Key, a.Value)
		return
	}
	q := req.URL.Query()
	q.Set(a.Key, a.Value)
	req.URL.RawQuery = q.Encode()
}

// NewAuth builds an Auth from its configured kind: basic, bearer, header
// or query. name is the user for basic and the key name for header/query.
func NewAuth(kind, name, secret string) (Auth, error) {
	switch strings.ToLower(kind) {
	case "basic":
		return &BasicAuth{Username: name, Password: secret}, nil
	case "bearer", "":
		return &BearerAuth{Token: secret}, nil
	case "header":
		return &APIKeyAuth{Key: name, Value: secret, InHeader: true}, nil
	case "query":
		return &APIKeyAuth{Key: name, Value: secret}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", kind)
	}
}

// WithAuth applies a to requests whose host matches host; an empty host
// matches every request
func WithAuth(host string, a Auth) Option {
	return func(c *Client) {
		if c.auth == nil {
			c.auth = make(map[string]Auth)
		}
		c.auth[strings.ToLower(host)] = a
	}
}

// authorize applies the most specific matching credentials
func (c *Client) authorize(req *http.Request) {
	if a, ok := c.auth[strings.ToLower(req.URL.Hostname())]; ok {
		a.Apply(req)
		return
	}
	if a, ok := c.auth[""]; ok {
		a.Apply(req)
	}
}
