package interceptor

import (
	"fmt"
	"net/http"
)

// BlockedByHeader carries the matching rule on blocked responses.
const BlockedByHeader = "X-Aether-Blocked-By"

// Middleware refuses requests the filter blocks with 403 Forbidden and
// passes everything else to next. The request URL is judged as received;
// relative URLs are resolved against the Host header.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := i.Decide(r.Method, requestURL(r))
		if d.Blocked {
			writeBlocked(w, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Transport wraps base so blocked requests never leave the process.
// A nil base uses http.DefaultTransport.
func (i *Interceptor) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{interceptor: i, base: base}
}

type transport struct {
	interceptor *Interceptor
	base        http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	d := t.interceptor.Decide(req.Method, url)
	if d.Blocked {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("%w: %s (rule %q)", ErrBlocked, url, d.Rule)
	}
	return t.base.RoundTrip(req)
}

func requestURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := *r.URL
	u.Scheme = scheme
	u.Host = r.Host
	return u.String()
}

func writeBlocked(w http.ResponseWriter, d Decision) {
	w.Header().Set(BlockedByHeader, string(d.Rule))
	http.Error(w, "blocked by content filter", http.StatusForbidden)
}
