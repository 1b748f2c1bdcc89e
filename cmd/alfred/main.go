// Package main runs the alfred dashboard state tool.
//
// It opens the local widget cache (and the remote store when configured),
// registers the built-in widget providers, and exposes maintenance verbs
// for inspecting, migrating, and clearing widget state.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/louisbranch/alfred/internal/platform/cmd"
	"github.com/louisbranch/alfred/internal/platform/config"
	platformerrors "github.com/louisbranch/alfred/internal/platform/errors"
	"github.com/louisbranch/alfred/internal/storage"
	boltstore "github.com/louisbranch/alfred/internal/storage/bbolt"
	"github.com/louisbranch/alfred/internal/storage/sqlite"
	"github.com/louisbranch/alfred/internal/sync"
	"github.com/louisbranch/alfred/internal/widgets"
	"github.com/louisbranch/alfred/internal/widgets/quicklinks"
	"github.com/louisbranch/alfred/internal/widgets/sample"
)

type appConfig struct {
	// DataDir holds the local widget cache database.
	DataDir string `env:"ALFRED_DATA_DIR" envDefault:"data"`
	// RemoteDBPath points at the remote store database. Empty runs
	// local-only.
	RemoteDBPath string `env:"ALFRED_REMOTE_DB_PATH"`
	// UserID identifies the signed-in user. Empty runs anonymous.
	UserID string `env:"ALFRED_USER_ID"`
}

func main() {
	var cfg appConfig
	fs := flag.NewFlagSet("alfred", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: alfred [flags] <types|widgets|show|migrate|clear> [widget-type]\n\n")
		fs.PrintDefaults()
	}
	if err := cmd.ParseConfig(&cfg); err != nil {
		config.Exitf("alfred: %v", err)
	}
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the local widget cache")
	fs.StringVar(&cfg.RemoteDBPath, "remote-db", cfg.RemoteDBPath, "path to the remote store database (empty = local-only)")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "user ID for remote sync (empty = anonymous)")
	if err := cmd.ParseArgs(fs, os.Args[1:]); err != nil {
		config.Exitf("alfred: %v", err)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := cmd.RunWithTelemetry(ctx, cmd.ServiceDashboard, func(ctx context.Context) error {
		return run(ctx, cfg, fs.Args())
	})
	if err != nil {
		// Bad invocations exit 2 like flag errors; runtime failures exit 1.
		var domainErr *platformerrors.Error
		if errors.As(err, &domainErr) && domainErr.Kind() == platformerrors.KindValidation {
			fmt.Fprintf(os.Stderr, "alfred: %v\n", err)
			os.Exit(2)
		}
		config.Exitf("alfred: %v", err)
	}
}

func run(ctx context.Context, cfg appConfig, args []string) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	local, err := boltstore.Open(filepath.Join(cfg.DataDir, "alfred.db"))
	if err != nil {
		return fmt.Errorf("open local cache: %w", err)
	}
	defer local.Close()

	var remote storage.RemoteStore
	if cfg.RemoteDBPath != "" {
		store, err := sqlite.Open(cfg.RemoteDBPath)
		if err != nil {
			return fmt.Errorf("open remote store: %w", err)
		}
		defer store.Close()
		remote = store
	}

	registry, providers, err := buildRegistry(local, remote)
	if err != nil {
		return err
	}

	switch verb := args[0]; verb {
	case "types":
		for _, widgetType := range registry.Types() {
			fmt.Println(widgetType)
		}
		return nil
	case "widgets":
		for _, descriptor := range widgets.DefaultCatalog().Descriptors() {
			fmt.Printf("%s\t%s\t%s\n", descriptor.Type, descriptor.Name, descriptor.Description)
		}
		return nil
	case "show":
		return runShow(ctx, cfg.UserID, providers, args[1:])
	case "migrate":
		return runMigrate(ctx, registry, cfg.UserID)
	case "clear":
		return runClear(ctx, registry, cfg.UserID, args[1:])
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}

// shower loads one widget type's state for display.
type shower func(ctx context.Context, userID string) (any, sync.Status, string)

func buildRegistry(local storage.LocalStore, remote storage.RemoteStore) (*sync.Registry, map[string]shower, error) {
	registry := sync.NewRegistry(nil)
	providers := make(map[string]shower)

	links, err := quicklinks.NewProvider(local, remote, "", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("quicklinks provider: %w", err)
	}
	registry.Register(links)
	providers[links.WidgetType()] = func(ctx context.Context, userID string) (any, sync.Status, string) {
		result := links.Load(ctx, userID)
		return result.Data, result.Status, result.Err
	}

	notes, err := sample.NewProvider(local, remote, "", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("sample provider: %w", err)
	}
	registry.Register(notes)
	providers[notes.WidgetType()] = func(ctx context.Context, userID string) (any, sync.Status, string) {
		result := notes.Load(ctx, userID)
		return result.Data, result.Status, result.Err
	}

	return registry, providers, nil
}

func runShow(ctx context.Context, userID string, providers map[string]shower, args []string) error {
	selected := providers
	if len(args) > 0 {
		show, ok := providers[args[0]]
		if !ok {
			return fmt.Errorf("unknown widget type %q", args[0])
		}
		selected = map[string]shower{args[0]: show}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	for widgetType, show := range selected {
		data, status, errMsg := show(ctx, userID)
		report := map[string]any{"widget": widgetType, "status": status, "data": data}
		if errMsg != "" {
			report["error"] = errMsg
		}
		if err := encoder.Encode(report); err != nil {
			return err
		}
	}
	return nil
}

func runMigrate(ctx context.Context, registry *sync.Registry, userID string) error {
	if userID == "" {
		return platformerrors.New(platformerrors.CodeSyncUserRequired, "migrate requires -user")
	}
	failed := false
	for widgetType, result := range registry.MigrateAll(ctx, userID) {
		if result.Succeeded() {
			fmt.Printf("%s: %s\n", widgetType, result.Status)
			continue
		}
		failed = true
		fmt.Printf("%s: %s (%s)\n", widgetType, result.Status, result.Err)
	}
	if failed {
		return fmt.Errorf("migration finished with failures")
	}
	return nil
}

func runClear(ctx context.Context, registry *sync.Registry, userID string, args []string) error {
	if len(args) == 0 {
		failed := false
		for widgetType, result := range registry.ClearAll(ctx, userID) {
			if result.Succeeded() {
				fmt.Printf("%s: cleared (%s)\n", widgetType, result.Status)
				continue
			}
			failed = true
			fmt.Printf("%s: %s (%s)\n", widgetType, result.Status, result.Err)
		}
		if failed {
			return fmt.Errorf("clear finished with failures")
		}
		return nil
	}

	provider, err := registry.Require(args[0])
	if err != nil {
		return err
	}
	result := provider.Clear(ctx, userID)
	if !result.Succeeded() {
		return fmt.Errorf("clear %s: %s", args[0], result.Err)
	}
	fmt.Printf("%s: cleared (%s)\n", args[0], result.Status)
	return nil
}
