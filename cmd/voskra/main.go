package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "voskra",
		Short:   "Fragmented-MP4 passthrough demuxer",
		Long:    "Voskra demuxes fragmented-MP4 media segments: it extracts a raw passthrough video buffer, emsg/ID3 timed metadata, and caption samples for handoff to a playback buffer.",
		Version: version,
	}
	root.AddCommand(newDemuxCommand())
	root.AddCommand(newProbeCommand())
	return root
}
