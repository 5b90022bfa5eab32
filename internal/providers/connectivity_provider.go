package providers

import (
	"sync"

	"go.uber.org/atomic"
)

// ConnectivityInterface is the process-wide online flag. The scheduler
// feeds it from periodic probes; the host app may also push explicit
// hints through the local API. Subscribers are notified on every
// transition, in registration order, on the caller's goroutine.
type ConnectivityInterface interface {
	Online() bool
	SetOnline(online bool)
	Subscribe(fn func(online bool))
}

type ConnectivityProvider struct {
	online atomic.Bool
	logger Logger

	mu   sync.Mutex
	subs []func(online bool)
}

func NewConnectivityProvider(logger Logger) ConnectivityInterface {
	p := &ConnectivityProvider{logger: logger}
	// Assume reachable until the first probe says otherwise.
	p.online.Store(true)
	return p
}

func (p *ConnectivityProvider) Online() bool {
	return p.online.Load()
}

func (p *ConnectivityProvider) SetOnline(online bool) {
	if !p.online.CompareAndSwap(!online, online) {
		return
	}
	p.logger.Infof(TypeApp, "Connectivity changed: online=%t", online)

	p.mu.Lock()
	subs := append([]func(bool){}, p.subs...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

func (p *ConnectivityProvider) Subscribe(fn func(online bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}
