package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/voskra/voskra/demux"
	"github.com/voskra/voskra/fetch"
	"github.com/voskra/voskra/pipeline"
)

type demuxOptions struct {
	initLocation string
	out          string
	audioCodec   string
	videoCodec   string
	duration     float64
	progressive  bool
	useHTTP3     bool
	chunkSize    int
}

func newDemuxCommand() *cobra.Command {
	cfg := newConfig()
	var opts demuxOptions

	cmd := &cobra.Command{
		Use:   "demux --init INIT SEGMENT...",
		Short: "Demux fragmented-MP4 segments into passthrough output",
		Long:  "Fetches an init segment and one or more media segments (local paths or http/https URLs), demuxes them, writes the passthrough video buffer to the output, and reports timed metadata and caption events.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemux(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.initLocation, "init", "", "init segment path or URL (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "output file for the passthrough video buffer (- for stdout)")
	cmd.Flags().StringVar(&opts.audioCodec, "audio-codec", "", "audio codec hint used when the init segment does not name one")
	cmd.Flags().StringVar(&opts.videoCodec, "video-codec", "", "video codec hint used when the init segment does not name one")
	cmd.Flags().Float64Var(&opts.duration, "duration", cfg.GetFloat64("demux.duration"), "per-segment duration in seconds, used to advance the time offset between segments")
	cmd.Flags().BoolVar(&opts.progressive, "progressive", cfg.GetBool("demux.progressive"), "manage fragment boundaries across arbitrarily-chunked input")
	cmd.Flags().BoolVar(&opts.useHTTP3, "http3", cfg.GetBool("fetch.http3"), "fetch segments over HTTP/3")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", cfg.GetInt("fetch.chunk_size"), "maximum bytes delivered to the demuxer per chunk")
	cobra.CheckErr(cmd.MarkFlagRequired("init"))

	return cmd
}

func runDemux(ctx context.Context, opts demuxOptions, segments []string) error {
	log := slog.Default()

	client := fetch.NewClient(opts.useHTTP3, log)
	defer client.Close()

	initData, err := client.Segment(ctx, opts.initLocation)
	if err != nil {
		return fmt.Errorf("fetching init segment: %w", err)
	}

	sink, err := newFileSink(opts.out, log)
	if err != nil {
		return err
	}
	defer sink.Close()

	dmx := demux.NewPassthrough(opts.progressive, log)
	p := pipeline.New(dmx, sink, log)
	p.Init(initData, opts.audioCodec, opts.videoCodec, opts.duration)

	offset := 0.0
	for _, segment := range segments {
		log.Info("demuxing segment", "segment", segment, "timeOffset", offset)

		// The fetcher and the demux loop run as separate stages so a slow
		// origin never blocks inside the demuxer and vice versa. The demuxer
		// itself stays single-threaded: only the feed goroutine touches it.
		chunks := make(chan []byte, 4)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer close(chunks)
			return client.Stream(gctx, segment, opts.chunkSize, func(chunk []byte) error {
				select {
				case chunks <- chunk:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		})
		g.Go(func() error {
			for chunk := range chunks {
				if err := p.Feed(chunk, offset); err != nil {
					return err
				}
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("demuxing %s: %w", segment, err)
		}
		offset += opts.duration
	}
	p.Finish()

	snap := p.Snapshot()
	log.Info("demux complete",
		"videoBuffers", snap.VideoBuffers,
		"metadataSamples", snap.MetadataSamples,
		"captionFrames", snap.CaptionFrames,
	)
	return nil
}
