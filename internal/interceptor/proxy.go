package interceptor

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aetherbrowser/aether/internal/logging"
)

// Proxy is an HTTP forward proxy that runs every request through an
// Interceptor. CONNECT tunnels are judged on "https://host:port/".
type Proxy struct {
	interceptor *Interceptor
	forward     *httputil.ReverseProxy
	dialer      *net.Dialer
	log         zerolog.Logger
}

// NewProxy creates a Proxy. transport is used for plain HTTP requests;
// nil selects http.DefaultTransport. dialTimeout bounds CONNECT dials.
func NewProxy(ctx context.Context, i *Interceptor, transport http.RoundTripper, dialTimeout time.Duration) *Proxy {
	log := logging.Component(ctx, "proxy")

	if transport == nil {
		transport = http.DefaultTransport
	}

	p := &Proxy{
		interceptor: i,
		dialer:      &net.Dialer{Timeout: dialTimeout},
		log:         log,
	}
	p.forward = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.Host = pr.In.URL.Host
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log := logging.ForURL(p.log, r.URL.String())
			log.Warn().Err(err).Msg("upstream request failed")
			http.Error(w, "upstream request failed", http.StatusBadGateway)
		},
	}
	return p
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		p.handleConnect(w, r)
		return
	}

	if !r.URL.IsAbs() {
		http.Error(w, "proxy requests must use an absolute URL", http.StatusBadRequest)
		return
	}

	d := p.interceptor.Decide(r.Method, r.URL.String())
	if d.Blocked {
		writeBlocked(w, d)
		return
	}
	p.forward.ServeHTTP(w, r)
}

func (p *Proxy) handleConnect(w http.ResponseWriter, r *http.Request) {
	target := r.Host
	if target == "" {
		http.Error(w, "missing CONNECT target", http.StatusBadRequest)
		return
	}

	d := p.interceptor.Decide(r.Method, "https://"+target+"/")
	if d.Blocked {
		writeBlocked(w, d)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "tunneling not supported", http.StatusInternalServerError)
		return
	}

	upstream, err := p.dialer.DialContext(r.Context(), "tcp", target)
	if err != nil {
		p.log.Warn().Err(err).Str("target", target).Msg("CONNECT dial failed")
		http.Error(w, "upstream dial failed", http.StatusBadGateway)
		return
	}

	client, buf, err := hijacker.Hijack()
	if err != nil {
		_ = upstream.Close()
		p.log.Warn().Err(err).Msg("hijack failed")
		return
	}

	if _, err := io.WriteString(client, "HTTP/1.1 200 Connection Established\r\n\r\n"); err != nil {
		_ = client.Close()
		_ = upstream.Close()
		return
	}

	// Bytes the client sent after the CONNECT line may already be buffered.
	if n := buf.Reader.Buffered(); n > 0 {
		pending, _ := buf.Reader.Peek(n)
		if _, err := upstream.Write(pending); err != nil {
			_ = client.Close()
			_ = upstream.Close()
			return
		}
	}

	tunnel(client, upstream)
}

// tunnel copies in both directions until both sides are done. EOF in
// one direction is forwarded as a half-close so replies still in flight
// in the other direction are delivered.
func tunnel(a, b net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)
	go pipe(&wg, a, b)
	go pipe(&wg, b, a)
	wg.Wait()

	_ = a.Close()
	_ = b.Close()
}

type closeWriter interface {
	CloseWrite() error
}

func pipe(wg *sync.WaitGroup, dst, src net.Conn) {
	defer wg.Done()
	_, _ = io.Copy(dst, src)

	if cw, ok := dst.(closeWriter); ok {
		_ = cw.CloseWrite()
		return
	}
	// no half-close available: close fully so the opposite copy ends too
	_ = dst.Close()
}
