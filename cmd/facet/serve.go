package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dlowans/facet/internal/dashboard"
	"github.com/dlowans/facet/internal/metadata"
	"github.com/dlowans/facet/internal/session"
	"github.com/dlowans/facet/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard session and WebSocket feed",
	Long: `Start a dashboard session for the acting user and serve its live
state over WebSocket.

The session restores the user's saved filter context, keeps the result
page in sync as filters change, and broadcasts every page update to
connected clients:
- page_update: the current result page (items, totals, loading, error)
- status_counts: per-status tab badge counts
- mutation: a project was created, moved or deleted

Example usage:
  facet serve                    # default port 8423
  facet serve --port 9000

Connect with a WebSocket client:
  ws://localhost:8423/ws

The reference file next to the database (reference.yaml) feeds the
filter selectors and is reloaded automatically when edited.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		user := actingUser()

		st, err := store.Open(viper.GetString("db"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := st.InitSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize schema: %v\n", err)
			os.Exit(1)
		}

		// Reference data: store records first, the YAML file layered
		// on top whenever it changes.
		meta := metadata.NewCache()
		if data, err := st.LoadMetadata(ctx); err == nil {
			meta.Set(data)
		} else {
			logger.Printf("metadata load failed: %v", err)
		}
		watcher, err := metadata.NewWatcher(
			metadata.NewFileSource(viper.GetString("metadata_file")), meta, nil, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create metadata watcher: %v\n", err)
			os.Exit(1)
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Printf("metadata watch disabled: %v", err)
		} else {
			defer watcher.Stop()
		}

		server := dashboard.NewServer(&dashboard.Config{Port: port, Logger: logger})
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}

		sess, err := session.New(session.Config{
			Fetcher:     st,
			Mutator:     st,
			NavStore:    st,
			Metadata:    meta,
			SmallScreen: smallScreen(),
			Logger:      logger,
			OnResult:    server.BroadcastResult,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create session: %v\n", err)
			os.Exit(1)
		}
		defer sess.Close()

		if err := sess.Start(ctx, user); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start session: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Dashboard session for %s started\n", user)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8423, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
