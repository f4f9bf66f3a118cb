package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ryujinbites/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

type schemaStore interface {
	EnsureSchema(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int64, error)
}

func main() {
	var (
		command string
		dsn     string
	)

	flag.StringVar(&command, "command", "up", "migration command: up|status")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: RYUJIN_POSTGRES_DSN)")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("RYUJIN_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("RYUJIN_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := run(ctx, command, store, os.Stdout); err != nil {
		fail("%v", err)
	}
}

// run выполняет команду миграции и печатает итоговую версию схемы.
func run(ctx context.Context, command string, store schemaStore, out io.Writer) error {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "up":
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("schema version failed: %w", err)
		}
		_, _ = fmt.Fprintf(out, "migrate up ok: version=%d\n", version)
	case "status":
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("schema version failed: %w", err)
		}
		_, _ = fmt.Fprintf(out, "migration status: version=%d\n", version)
	default:
		return fmt.Errorf("unsupported command: %s (use up|status)", command)
	}
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
