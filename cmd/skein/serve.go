package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/internal/cli"
	"github.com/weftworks/skein/pkg/adapters/httphost"
	"github.com/weftworks/skein/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP story server",
	Long:  `Serves the deck over HTTP: each session gets its own story, played through a JSON API with an SSE event stream and prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		deckPath, _ := cmd.Flags().GetString("deck")
		debug, _ := cmd.Flags().GetBool("debug")
		port, _ := cmd.Flags().GetString("port")

		logger := cli.Logger(debug)

		d, err := cli.LoadDeck(deckPath)
		if err != nil {
			fmt.Printf("Error loading deck: %v\n", err)
			os.Exit(1)
		}

		// Lint the deck once up front; sessions then skip validation.
		if _, err := skein.New(d, skein.WithLogger(logger)); err != nil {
			fmt.Printf("Error validating deck: %v\n", err)
			os.Exit(1)
		}

		registry := prometheus.NewRegistry()
		collector := telemetry.NewCollector(registry)

		factory := func() (*skein.Story, error) {
			return skein.New(d,
				skein.WithLogger(logger),
				skein.WithObservers(collector.Observers()),
				skein.WithValidation(false),
			)
		}

		host := httphost.New(factory,
			httphost.WithLogger(logger),
			httphost.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: host.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Skein Server on %s\n", srv.Addr)
			fmt.Printf("Serving deck: %s\n", deckPath)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Skein Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
