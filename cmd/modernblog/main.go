// Command modernblog runs the blog backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	modernblog "github.com/Giriprasad013-git/modern-blog"
)

// version is set at build time via ldflags.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "migrate":
		err = runMigrate()
	case "seed":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: modernblog seed <posts.yaml>")
			os.Exit(1)
		}
		err = runSeed(os.Args[2])
	case "version":
		fmt.Printf("modernblog %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`modernblog - backend for a content-driven blog

Usage:
  modernblog <command> [arguments]

Commands:
  serve           Start the HTTP server
  migrate         Apply pending database migrations and exit
  seed <file>     Import posts from a YAML file, skipping existing slugs
  version         Print the modernblog version
  help            Show this help message

Configuration is read from the environment and from .env files in the
working directory (.env.<APP_ENV>.local, .env.local, .env.<APP_ENV>, .env).`)
}

func loadApp() (*modernblog.App, error) {
	cfg, err := modernblog.LoadConfig(".")
	if err != nil {
		return nil, err
	}
	return modernblog.New(cfg), nil
}

func runServe() error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start(ctx) }()

	select {
	case err := <-errc:
		if cerr := app.Close(); err == nil {
			err = cerr
		}
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(sctx); err != nil {
		app.Logger.Error("shutdown", zap.Error(err))
		return err
	}
	return nil
}

// runMigrate opens the database, which applies pending migrations, and
// exits.
func runMigrate() error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	if err := app.Init(context.Background()); err != nil {
		return err
	}
	app.Logger.Info("database is up to date", zap.String("driver", app.Config.DatabaseDriver))
	return app.Close()
}

func runSeed(path string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := app.Init(ctx); err != nil {
		return err
	}
	defer app.Close()

	posts, err := readSeed(path)
	if err != nil {
		return err
	}
	created, err := seed(ctx, app.Content, posts)
	if err != nil {
		return err
	}
	app.Logger.Info("seed complete", zap.Int("created", created), zap.Int("total", len(posts)))
	return nil
}
