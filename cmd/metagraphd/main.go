// Package main provides the metagraphd CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adaptive-rag/metagraph"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
	"github.com/adaptive-rag/metagraph/server"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "metagraphd",
		Short: "metagraphd - adaptive meta-learning retrieval layer",
		Long: `metagraphd serves the adaptive meta-learning layer over a
knowledge graph and vector index. It records retrieval outcomes,
reweights graph edges from observed success, discovers latent
relationships in reasoning chains and routes queries to the
historically best retrieval method.

Database configuration is read from the environment (DB_HOST, DB_PORT,
DB_DATABASE, DB_USERNAME, DB_PASSWORD); a .env file is loaded if present.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("metagraphd v%s\n", version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the metagraph HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().Int("port", 8080, "HTTP API port")
	serveCmd.Flags().Bool("embedder", false, "Enable the query embedder (downloads the model on first use)")
	serveCmd.Flags().Bool("scheduler", true, "Run the periodic maintenance jobs")
	rootCmd.AddCommand(serveCmd)

	decayCmd := &cobra.Command{
		Use:   "decay",
		Short: "Run one recency decay sweep and exit",
		RunE:  runDecay,
	}
	rootCmd.AddCommand(decayCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newMetagraph() (*metagraph.Metagraph, error) {
	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}
	return metagraph.New(dbConfig, model.DefaultAdaptiveConfig())
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	withEmbedder, _ := cmd.Flags().GetBool("embedder")
	withScheduler, _ := cmd.Flags().GetBool("scheduler")

	m, err := newMetagraph()
	if err != nil {
		return err
	}
	defer m.Close()

	if withEmbedder {
		if err := m.UseDefaultEmbedder(); err != nil {
			return err
		}
	}

	if withScheduler {
		if err := m.StartScheduler(); err != nil {
			return err
		}
		defer m.StopScheduler()
	}

	logger := slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
	}))
	handlers := server.NewHandlers(
		m.Orchestrator, m.Tracker, m.Reweighter, m.Discoverer, m.Router,
		m.Metrics, logger,
	)
	engine := server.NewEngine(handlers)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("metagraphd v%s listening on :%d\n", version, port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runDecay(cmd *cobra.Command, args []string) error {
	m, err := newMetagraph()
	if err != nil {
		return err
	}
	defer m.Close()

	cycleStart := time.Now().UTC().Truncate(model.DefaultAdaptiveConfig().DecayCycle)
	decayed, err := m.Reweighter.ApplyRecencyDecay(cycleStart)
	if err != nil {
		return err
	}

	fmt.Printf("Decayed %d edges\n", decayed)
	return nil
}
