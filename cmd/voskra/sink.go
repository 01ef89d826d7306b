package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/zsiec/ccx"

	"github.com/voskra/voskra/media"
)

// fileSink writes passthrough video bytes to a file (or stdout) and reports
// metadata and caption events on the log.
type fileSink struct {
	log     *slog.Logger
	out     io.Writer
	closeFn func() error
}

func newFileSink(path string, log *slog.Logger) (*fileSink, error) {
	s := &fileSink{log: log.With("component", "sink")}
	if path == "" || path == "-" {
		s.out = os.Stdout
		return s, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s.out = f
	s.closeFn = f.Close
	return s, nil
}

func (s *fileSink) AppendVideo(track *media.VideoTrack) {
	if _, err := s.out.Write(track.Data); err != nil {
		s.log.Error("writing passthrough buffer", "error", err)
		return
	}
	s.log.Debug("appended video", "bytes", len(track.Data), "codec", track.Codec)
}

func (s *fileSink) AppendMetadata(samples []media.MetadataSample) {
	for _, sample := range samples {
		s.log.Info("timed metadata",
			"pts", sample.PTS,
			"bytes", sample.Length,
			"schema", sample.Schema,
		)
	}
}

func (s *fileSink) AppendCaptions(frames []*ccx.CaptionFrame) {
	for _, frame := range frames {
		s.log.Info("caption",
			"ptsMicros", frame.PTS,
			"channel", frame.Channel,
			"text", frame.Text,
		)
	}
}

func (s *fileSink) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}
