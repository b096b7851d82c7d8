package reactrole

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/louisbranch/reactrole/internal/chat"
)

type stubClient struct{}

func (stubClient) BotUserID() string { return "500000000000000099" }
func (stubClient) MemberRoles(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (stubClient) AddMemberRoles(context.Context, string, string, []string, string) error {
	return nil
}
func (stubClient) RemoveMemberRoles(context.Context, string, string, []string, string) error {
	return nil
}
func (stubClient) AddReaction(context.Context, chat.MessageRef, string) error    { return nil }
func (stubClient) RemoveReaction(context.Context, chat.MessageRef, string) error { return nil }
func (stubClient) RemoveUserReaction(context.Context, chat.MessageRef, string, string) error {
	return nil
}
func (stubClient) RemoveAllReactions(context.Context, chat.MessageRef) error { return nil }

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DatabasePath != "reactrole.db" {
		t.Fatalf("expected default database path, got %q", cfg.DatabasePath)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("REACTROLE_DATABASE_PATH", "/tmp/env.db")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DatabasePath != "/tmp/env.db" {
		t.Fatalf("expected env database path, got %q", cfg.DatabasePath)
	}
}

func TestParseConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("REACTROLE_DATABASE_PATH", "/tmp/env.db")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-database", "/tmp/flag.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DatabasePath != "/tmp/flag.db" {
		t.Fatalf("expected flag database path, got %q", cfg.DatabasePath)
	}
}

func TestNewEngineRequiresClient(t *testing.T) {
	cfg := Config{DatabasePath: filepath.Join(t.TempDir(), "reactrole.db")}
	if _, err := NewEngine(cfg, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestNewEngineWiresComponents(t *testing.T) {
	cfg := Config{DatabasePath: filepath.Join(t.TempDir(), "reactrole.db")}
	engine, err := NewEngine(cfg, stubClient{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	if engine.Store == nil || engine.Locks == nil || engine.Resolver == nil || engine.Runner == nil {
		t.Fatal("expected all components wired")
	}

	stats, err := engine.Store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats on fresh store: %v", err)
	}
	if stats.BindingCount != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}

func TestRunMigratesAndReports(t *testing.T) {
	cfg := Config{DatabasePath: filepath.Join(t.TempDir(), "reactrole.db")}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
}
