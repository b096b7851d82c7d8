// Package reactrole parses engine configuration and assembles the engine.
package reactrole

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/reactrole/internal/bindings/storage"
	"github.com/louisbranch/reactrole/internal/bindings/storage/sqlite"
	"github.com/louisbranch/reactrole/internal/chat"
	"github.com/louisbranch/reactrole/internal/commands"
	entrypoint "github.com/louisbranch/reactrole/internal/platform/cmd"
	"github.com/louisbranch/reactrole/internal/resolver"
	"github.com/louisbranch/reactrole/internal/userlock"
)

// Config holds engine configuration.
type Config struct {
	DatabasePath string `env:"REACTROLE_DATABASE_PATH" envDefault:"reactrole.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DatabasePath, "database", cfg.DatabasePath, "Path to the SQLite database file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Engine bundles the reaction-role components around one store. The gateway
// layer embedding this engine routes platform events to Resolver and admin
// invocations to Runner.
type Engine struct {
	Store    storage.Store
	Locks    *userlock.Registry
	Resolver *resolver.Resolver
	Runner   *commands.Runner

	sqlStore *sqlite.Store
}

// NewEngine opens the store and wires the resolver, lock registry, and
// command runner over the given platform client.
func NewEngine(cfg Config, client chat.Client) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("chat client is required")
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	locks := userlock.NewRegistry(0)
	return &Engine{
		Store:    store,
		Locks:    locks,
		Resolver: resolver.New(store, client, locks),
		Runner:   commands.New(store, client),
		sqlStore: store,
	}, nil
}

// Close releases the engine's store.
func (e *Engine) Close() error {
	if e == nil || e.sqlStore == nil {
		return nil
	}
	return e.sqlStore.Close()
}

// Run prepares the database and reports stored state. The chat gateway is an
// external collaborator, so the standalone binary only migrates the store
// and prints aggregate stats; embedding processes use NewEngine instead.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBot, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		stats, err := store.Stats(ctx)
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}
		log.Printf("store ready at %s: %d guilds, %d bindings, %d assignments",
			cfg.DatabasePath, stats.GuildCount, stats.BindingCount, stats.AssignmentCount)
		return nil
	})
}
