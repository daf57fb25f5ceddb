// Command synthd runs answer synthesis over a fallback chain of generation
// backends.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/davidbz/synthd/internal/circuit"
	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "synthd",
		Short: "Grounded answer synthesis with provider fallback",
		Long: `synthd turns a query and retrieved context chunks into a cited answer.
Providers are tried in priority order; failing providers are skipped by a
per-provider circuit breaker.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(synthesizeCmd())
	rootCmd.AddCommand(providersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withContainer builds the container, starts telemetry and invokes fn.
func withContainer(ctx context.Context, fn interface{}) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	err = container.Invoke(func(cfg *observability.TelemetryConfig) error {
		shutdown, initErr := observability.InitTelemetry(ctx, *cfg)
		if initErr != nil {
			return initErr
		}

		defer func() {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if shutdownErr := shutdown(flushCtx); shutdownErr != nil {
				observability.FromContext(ctx).Warn("telemetry shutdown failed", observability.Error(shutdownErr))
			}
		}()

		return container.Invoke(fn)
	})

	closeErr := container.Invoke(func(in closeParams) error {
		return in.Close()
	})

	return errors.Join(err, closeErr)
}

type closeParams struct {
	dig.In
	Close closer
}

// synthesisOutput is the JSON form of a SynthesisResult.
type synthesisOutput struct {
	*domain.SynthesisResult
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func synthesizeCmd() *cobra.Command {
	var requestFile string
	var stream bool

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Synthesize an answer for a JSON request",
		Long: `Reads a synthesis request (query, history, chunks, params) as JSON and
prints the result. Use --request - to read from stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readRequest(cmd.InOrStdin(), requestFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("stream") {
				req = req.WithStream(stream)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withContainer(ctx, func(synthesizer *domain.Synthesizer) error {
				result, synthErr := synthesizer.Synthesize(ctx, req)
				if synthErr != nil {
					return synthErr
				}

				output := synthesisOutput{
					SynthesisResult: result,
					LatencyMS:       result.Latency.Milliseconds(),
				}
				if result.Err != nil {
					output.Error = result.Err.Error()
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if encodeErr := encoder.Encode(output); encodeErr != nil {
					return fmt.Errorf("failed to write result: %w", encodeErr)
				}

				return result.Err
			})
		},
	}

	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "path to request JSON, or - for stdin")
	cmd.Flags().BoolVar(&stream, "stream", false, "request streamed generation from providers that support it")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

func readRequest(stdin io.Reader, path string) (*domain.SynthesisRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var req domain.SynthesisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	return &req, nil
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show the resolved fallback chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd.Context(), func(
				descriptors []domain.ProviderDescriptor,
				reg domain.ProviderRegistry,
				breaker *circuit.Breaker,
			) error {
				ctx := cmd.Context()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PRIORITY\tNAME\tKIND\tMODEL\tSTREAM\tMAX CONTEXT\tTIMEOUT\tSTATUS")

				candidates, err := reg.List(ctx)
				if err != nil {
					return err
				}
				registered := make(map[string]struct{}, len(candidates))
				for _, c := range candidates {
					registered[c.Descriptor.Name] = struct{}{}
					d := c.Descriptor
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
						d.Priority, d.Name, d.Kind, dash(d.Model), d.SupportsStreaming,
						contextLimit(d.MaxContextTokens), d.Timeout, breaker.State(d.Name))
				}

				for _, d := range descriptors {
					if _, ok := registered[d.Name]; ok {
						continue
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
						d.Priority, d.Name, d.Kind, dash(d.Model), d.SupportsStreaming,
						contextLimit(d.MaxContextTokens), d.Timeout, "not configured")
				}

				return w.Flush()
			})
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func contextLimit(tokens int) string {
	if tokens <= 0 {
		return "unbounded"
	}
	return strconv.Itoa(tokens)
}
