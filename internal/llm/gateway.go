package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single SendMessage round trip
const DefaultTimeout = 20 * time.Second

// Gateway is the stateless request/response boundary to a provider.
// Callers own the dialogue history and pass it in full each call; the
// gateway only remembers the system framing set by SetContext.
type Gateway struct {
	provider Provider
	log      zerolog.Logger
	timeout  time.Duration
	probe    time.Duration

	mu     sync.RWMutex
	system string
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) GatewayOption {
	return func(g *Gateway) { g.log = l }
}

// NewGateway wraps a provider. A nil provider makes every send fail with ErrUnavailable.
func NewGateway(p Provider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider: p,
		log:      zerolog.Nop(),
		timeout:  DefaultTimeout,
		probe:    3 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProviderName returns the backing provider's name, "none" without one
func (g *Gateway) ProviderName() string {
	if g.provider == nil {
		return "none"
	}
	return g.provider.Name()
}

// SetContext replaces the system framing sent with every request
func (g *Gateway) SetContext(system string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.system = system
}

// Context returns the current system framing
func (g *Gateway) Context() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.system
}

// CheckAvailability probes the provider without blocking past ctx or the
// probe timeout. The answer is advisory.
func (g *Gateway) CheckAvailability(ctx context.Context) bool {
	if g.provider == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, g.probe)
	defer cancel()

	result := make(chan bool, 1)
	go func() { result <- g.provider.Available() }()

	select {
	case ok := <-result:
		return ok
	case <-ctx.Done():
		return false
	}
}

// SendMessage performs one round trip with the given history. System turns
// in history are dropped in favor of the current context. All failures are
// ErrUnavailable or *TransportError.
func (g *Gateway) SendMessage(ctx context.Context, history []Message) (Reply, error) {
	if g.provider == nil {
		return Reply{}, ErrUnavailable
	}

	msgs := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role != RoleSystem {
			msgs = append(msgs, m)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Chat(ctx, &ChatRequest{
		SystemPrompt: g.Context(),
		Messages:     msgs,
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return Reply{}, err
		}
		te := transportErr(g.provider.Name(), err)
		g.log.Warn().Err(te).Str("provider", g.provider.Name()).Msg("round trip failed")
		return Reply{}, te
	}
	if strings.TrimSpace(resp.Content) == "" {
		return Reply{}, &TransportError{Provider: g.provider.Name(), Err: fmt.Errorf("empty reply")}
	}

	reply := ParseReply(resp.Content)
	g.log.Debug().
		Str("provider", g.provider.Name()).
		Str("kind", reply.Kind.String()).
		Dur("duration", resp.Duration).
		Msg("reply received")
	return reply, nil
}
