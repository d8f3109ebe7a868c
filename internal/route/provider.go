package route

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Provider fetches live routes from an external routing API.
type Provider interface {
	Name() string
	Routes(ctx context.Context, req Request) ([]Info, error)
}

// NewHTTPClient builds the client shared by the provider implementations:
// connectTimeout bounds the TCP dial, readTimeout the wait for response
// headers. Zero values fall back to 10s and 15s.
func NewHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: readTimeout,
			MaxIdleConnsPerHost:   4,
		},
		Timeout: connectTimeout + readTimeout,
	}
}
