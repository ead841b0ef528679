package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:   "orderflow",
		Short: "Order-flow footprint aggregation and market statistics engine",
	}
	root.PersistentFlags().String("config", "", "path to YAML config file")

	root.AddCommand(streamCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(footprintCmd())
	root.AddCommand(probabilityCmd())
	root.AddCommand(portfolioCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// setupLogging emits human-readable console logs on a terminal and
// structured JSON everywhere else.
func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
