package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/voskra/voskra/demux"
	"github.com/voskra/voskra/fetch"
)

func newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE",
		Short: "Report whether a file is a demuxable fragmented-MP4 stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := fetch.NewClient(false, slog.Default())
			defer client.Close()

			data, err := client.Segment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := demux.Select(data, false, slog.Default()); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "fragmented-mp4")
			return nil
		},
	}
}
