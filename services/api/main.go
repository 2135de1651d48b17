// codeforge is the HTTP backend for the code playground.
// It forwards prompts and code snippets to a hosted LLM and answers with:
//
//	POST /generate-code  → streamed completion, code extracted from fences
//	POST /analyze-text   → plain completion, returned verbatim
//	GET  /ping           → liveness
//	GET  /ws             → live lifecycle events (started / fragment / complete)
//
// Lifecycle events are relayed over RabbitMQ when AMQP_URL is set, so every
// instance's WebSocket clients see every request.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/forge-ai/codeforge/services/api/internal"
	"github.com/forge-ai/codeforge/shared/extract"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "codeforge",
		Short:         "LLM code generation and analysis backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), extractCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("codeforge exited")
	}
}

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigs
				log.Info().Msg("shutdown signal, stopping api")
				cancel()
			}()

			s, err := internal.NewServer(cfg)
			if err != nil {
				return fmt.Errorf("start server: %w", err)
			}
			defer s.Close()

			log.Info().
				Str("provider", cfg.Provider).
				Str("code_model", cfg.Codegen.Name).
				Str("analysis_model", cfg.Analysis.Name).
				Bool("amqp", cfg.AMQPURL != "").
				Msg("codeforge online")

			if err := s.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $CONFIG_FILE)")
	return cmd
}

func extractCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract code from an LLM answer read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			code, err := extractFrom(in, lang)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "js", "language tag expected after the opening fence")
	return cmd
}

// extractFrom feeds r line by line, so each line is one fragment.
func extractFrom(r io.Reader, lang string) (string, error) {
	ex := extract.New(lang)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			ex.Feed(line)
		}
		if err == io.EOF {
			return ex.Result(), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codeforge version: %s\n", version)
		},
	}
}
