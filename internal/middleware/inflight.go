package middleware

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// InFlight allows at most one request per client through the wrapped handler.
// Extra requests are rejected instead of queued.
type InFlight struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{active: make(map[uuid.UUID]struct{})}
}

func (f *InFlight) acquire(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[id]; busy {
		return false
	}
	f.active[id] = struct{}{}
	return true
}

func (f *InFlight) release(id uuid.UUID) {
	f.mu.Lock()
	delete(f.active, id)
	f.mu.Unlock()
}

// Middleware must run after JWTAuth so the client ID is on the context.
func (f *InFlight) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := GetClientID(r.Context())
		if !f.acquire(clientID) {
			writeError(w, http.StatusConflict, "GENERATION_IN_PROGRESS", "A generation is already in progress for this client", r)
			return
		}
		defer f.release(clientID)
		next.ServeHTTP(w, r)
	})
}
