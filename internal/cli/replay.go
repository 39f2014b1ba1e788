package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yegors/narsim-bridge/internal/bridge"
	"github.com/yegors/narsim-bridge/internal/transport"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// ReplayOptions holds flags for the replay command
type ReplayOptions struct {
	*RootOptions
	ChunkSize int
	JSON      bool
}

// ReplayResult is the summary printed after a replay
type ReplayResult struct {
	File    string       `json:"file"`
	Stats   bridge.Stats `json:"stats"`
	Objects int          `json:"objects_left"`
}

// NewReplayCommand creates the replay command
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: "Feed a captured NARSIM byte stream through the bridge offline",
		Long: `Replay reads a captured stream in fixed-size chunks, one chunk per cycle,
and runs it through framing, decoding, reconciliation and the in-memory
proxy. Records split across chunk boundaries are reassembled exactly as on
a live connection.

Examples:
  narsim-bridge replay capture.bin
  narsim-bridge replay capture.bin --chunk-size 37 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", transport.DefaultReadBufferBytes, "bytes per simulated read")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the summary as JSON")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, path string) error {
	if opts.ChunkSize <= 0 {
		return fmt.Errorf("chunk-size must be positive, got %d", opts.ChunkSize)
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer file.Close()

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.close()

	bcfg := bridgeConfig(cfg)
	bcfg.MaxReadsPerCycle = 1
	service := bridge.NewService(transport.NewReaderSource(file, opts.ChunkSize), p.engine, p.sequencer, bcfg, log)

	ctx := cmd.Context()
	for {
		err := service.RunCycle(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		service.Shutdown(ctx)
		return err
	}
	service.Shutdown(ctx)

	result := ReplayResult{File: path, Stats: service.Stats(), Objects: len(p.memory.Objects())}
	log.Info("Replay complete",
		logger.String("file", path),
		logger.Int("chunk_size", opts.ChunkSize),
		logger.Int64("records", int64(result.Stats.RecordsFramed)))

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	s := result.Stats
	fmt.Fprintf(out, "file:             %s\n", path)
	fmt.Fprintf(out, "bytes read:       %d\n", s.BytesRead)
	fmt.Fprintf(out, "records framed:   %d\n", s.RecordsFramed)
	fmt.Fprintf(out, "truth reports:    %d\n", s.TruthReports)
	fmt.Fprintf(out, "decode failures:  %d (flight plans %d, unrecognized %d)\n",
		s.DecodeFailures, s.FlightPlansSkipped, s.UnrecognizedSkipped)
	fmt.Fprintf(out, "proxies:          created %d, updated %d, removed %d, errors %d\n",
		s.ProxiesCreated, s.ProxiesUpdated, s.ProxiesRemoved, s.ProxyErrors)
	fmt.Fprintf(out, "unconsumed bytes: %d\n", s.PartialBytes)
	return nil
}
