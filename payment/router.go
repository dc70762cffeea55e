package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitfsorg/libgacha-go/gacha"
)

// Router dispatches each transfer to the backend registered for its method.
// Token methods without their own backend fall back to the token default.
type Router struct {
	native gacha.PaymentBackend

	mu            sync.RWMutex
	tokens        map[gacha.MethodID]gacha.PaymentBackend
	tokenFallback gacha.PaymentBackend
}

// Compile-time interface check.
var _ gacha.PaymentBackend = (*Router)(nil)

// NewRouter returns a router sending native payments to native.
func NewRouter(native gacha.PaymentBackend) *Router {
	return &Router{native: native, tokens: make(map[gacha.MethodID]gacha.PaymentBackend)}
}

// HandleToken routes method to backend.
func (r *Router) HandleToken(method gacha.MethodID, backend gacha.PaymentBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[method] = backend
}

// HandleAllTokens sets the backend for token methods with no specific route.
func (r *Router) HandleAllTokens(backend gacha.PaymentBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokenFallback = backend
}

func (r *Router) Transfer(ctx context.Context, t gacha.Transfer) (gacha.Receipt, error) {
	backend, err := r.route(t.Method)
	if err != nil {
		return gacha.Receipt{}, err
	}
	return backend.Transfer(ctx, t)
}

func (r *Router) route(method gacha.MethodID) (gacha.PaymentBackend, error) {
	if method.IsNative() {
		if r.native == nil {
			return nil, ErrNoNativeBackend
		}
		return r.native, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.tokens[method]; ok {
		return b, nil
	}
	if r.tokenFallback != nil {
		return r.tokenFallback, nil
	}
	return nil, fmt.Errorf("%w: %s", gacha.ErrTokenBackendMissing, method)
}
