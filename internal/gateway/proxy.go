package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// forwardedHeaders are the only client headers the gateway passes through.
// Everything else (auth material, hop-by-hop headers) stops at the edge.
var forwardedHeaders = []string{"Content-Type", "Accept"}

// ServiceProxy forwards a client request to one downstream service. The
// downstream response is returned as-is; the caller decides what to relay.
type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

// ForwardRequest replays r against the downstream service at path. The path
// must already carry any query string; the original request path is ignored.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, p.baseURL+path, r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build downstream request: %w", err)
	}

	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}

	return p.client.Do(req)
}
