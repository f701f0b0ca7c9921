package notion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// ErrUnsupportedProxy is returned for proxy URLs with a scheme other than
// socks5, socks5h, http or https.
var ErrUnsupportedProxy = errors.New("unsupported proxy scheme: expected socks5, http or https")

// NewHTTPClient creates the base HTTP client shared by the API client and the
// asset downloader.
//
// proxyURL is optional. A socks5:// URL routes connections through a SOCKS5
// dialer; an http:// or https:// URL uses a forward proxy. Empty means direct
// connections (still honoring HTTP_PROXY/HTTPS_PROXY from the environment).
//
// The client never carries API credentials. NewClient layers the
// Authorization and Notion-Version headers on top, so pre-signed file URLs
// fetched with the base client never see the integration token.
func NewHTTPClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}

		switch u.Scheme {
		case "socks5", "socks5h":
			var auth *proxy.Auth
			if u.User != nil {
				password, _ := u.User.Password()
				auth = &proxy.Auth{User: u.User.Username(), Password: password}
			}
			dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			transport.Proxy = nil
			transport.DialContext = dialContext(dialer)
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		default:
			return nil, ErrUnsupportedProxy
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
// The SOCKS5 dialer from x/net implements proxy.ContextDialer; the fallback
// path only exists for dialers that do not.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// authTransport injects the Notion credentials into every request.
type authTransport struct {
	base    http.RoundTripper
	token   string
	version string
	agent   string
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the caller's headers
	clone := req.Clone(req.Context())

	clone.Header.Set("Authorization", "Bearer "+t.token)
	clone.Header.Set("Notion-Version", t.version)
	if t.agent != "" {
		clone.Header.Set("User-Agent", t.agent)
	}
	if clone.Body != nil && clone.Header.Get("Content-Type") == "" {
		clone.Header.Set("Content-Type", "application/json")
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
