package interceptor

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// maxBypassTTL caps the ttl accepted by BypassHandler.
const maxBypassTTL = time.Hour

// BypassRegistry tracks one-time URL bypasses that are allowed through
// the filter. Entries live in memory only and expire after their TTL.
type BypassRegistry struct {
	mu      sync.Mutex
	allowed map[string]time.Time // URL -> expiry
	now     func() time.Time
}

// NewBypassRegistry creates a new bypass registry.
func NewBypassRegistry() *BypassRegistry {
	return &BypassRegistry{
		allowed: make(map[string]time.Time),
		now:     time.Now,
	}
}

// AllowOnce lets the next request for url through, if it happens
// within ttl.
func (r *BypassRegistry) AllowOnce(url string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowed[url] = r.now().Add(ttl)
}

// Consume reports whether url has a live bypass and removes it.
// Expired entries are dropped.
func (r *BypassRegistry) Consume(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiry, ok := r.allowed[url]
	if !ok {
		return false
	}
	delete(r.allowed, url)
	return r.now().Before(expiry)
}

// Clear removes all entries from the registry.
func (r *BypassRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowed = make(map[string]time.Time)
}

// Count returns the number of pending bypasses, expired ones included.
func (r *BypassRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.allowed)
}

// BypassHandler lets clients allow a single blocked URL through once.
// It accepts POST with form values "url" (absolute URL, required) and
// "ttl" (Go duration, optional, capped at one hour). defaultTTL applies
// when ttl is absent.
func BypassHandler(reg *BypassRegistry, defaultTTL time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		target := r.FormValue("url")
		if u, err := url.Parse(target); err != nil || !u.IsAbs() || u.Host == "" {
			http.Error(w, "url must be an absolute URL", http.StatusBadRequest)
			return
		}

		ttl := defaultTTL
		if raw := r.FormValue("ttl"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil || parsed <= 0 {
				http.Error(w, "ttl must be a positive duration", http.StatusBadRequest)
				return
			}
			ttl = parsed
		}
		ttl = min(ttl, maxBypassTTL)

		reg.AllowOnce(target, ttl)
		w.WriteHeader(http.StatusNoContent)
	})
}
