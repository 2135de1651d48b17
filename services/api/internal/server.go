package internal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/forge-ai/codeforge/shared/llm"
	"github.com/forge-ai/codeforge/shared/mq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Server owns the HTTP API and everything a request needs.
type Server struct {
	cfg      Config
	provider llm.Provider
	hub      *Hub
	emitter  *Emitter
	broker   *mq.Broker
}

// NewServer wires a server from cfg. The upstream provider is built from
// the config; the broker is only dialed when AMQPURL is set.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: cfg.UpstreamTimeout}
	provider, err := llm.New(cfg.Provider, cfg.BaseURL, cfg.APIKey, client)
	if err != nil {
		return nil, err
	}

	var broker *mq.Broker
	if cfg.AMQPURL != "" {
		broker, err = mq.New(cfg.AMQPURL, cfg.AMQPAttempts)
		if err != nil {
			return nil, fmt.Errorf("mq connect: %w", err)
		}
	}

	s := newServer(cfg, provider, nil)
	if broker != nil {
		s.broker = broker
		s.emitter = NewEmitter(s.hub, broker)
	}
	return s, nil
}

// newServer assembles a server around an existing provider and optional
// event publisher.
func newServer(cfg Config, provider llm.Provider, pub Publisher) *Server {
	hub := NewHub()
	return &Server{
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		emitter:  NewEmitter(hub, pub),
	}
}

func (s *Server) Close() {
	if s.broker != nil {
		s.broker.Close()
	}
}

// Run starts the hub, the event relay and the HTTP API, and blocks until
// ctx is canceled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub
	g.Go(func() error { return s.hub.Run(ctx) })

	// Broker → hub relay
	g.Go(func() error { return s.emitter.Relay(ctx) })

	// API server
	g.Go(func() error { return s.serveAPI(ctx) })

	return g.Wait()
}

func (s *Server) serveAPI(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.APIPort,
		Handler:           s.Router(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info().Str("port", s.cfg.APIPort).Str("provider", s.provider.Name()).Msg("api listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
