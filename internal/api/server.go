package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"loadplan/internal/auth"
	"loadplan/internal/notify"
	"loadplan/internal/pack"
	"loadplan/internal/store"
)

type Server struct {
	Store  store.Store
	Pub    *notify.Publisher
	Auth   *auth.Verifier
	Broker EventBroker
	Rules  pack.Config
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.MigrateDir("db/migrations"); err != nil {
				log.Printf("migrate: %v", err)
			}
		}
		s = sp
	}
	// Broker selection
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	rules := pack.DefaultConfig()
	if path := os.Getenv("CONSTRAINTS_CONFIG"); path != "" {
		c, err := pack.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		rules = c
	}
	return &Server{
		Store:  s,
		Pub:    notify.NewPublisher(s),
		Auth:   auth.NewVerifierFromEnv(),
		Broker: broker,
		Rules:  rules,
	}, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := s.getPrincipal(r).Tenant
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// NewNotifyWorker creates a background worker for notification deliveries.
func (s *Server) NewNotifyWorker() *notify.Worker {
	return notify.NewWorker(s.Store)
}
