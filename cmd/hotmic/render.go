package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-hotmic/host/config"
	"github.com/cwbudde/algo-hotmic/host/engine"
	"github.com/cwbudde/algo-hotmic/internal/audiofile"
	"github.com/cwbudde/algo-hotmic/plugins"
)

var errMissingFlag = errors.New("missing required flag")

type renderOptions struct {
	Config       string
	In           string
	Out          string
	Block        int
	BitDepth     int
	Compensate   bool
	Realtime     bool
	MetricsAddr  string
	PollInterval time.Duration
}

func (a *app) renderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Process an audio file through a channel topology",
		Long: `Render reads a WAV or FLAC file, feeds input channel i to engine channel i
(missing inputs are silent), runs the topology block by block and writes one
output channel per engine channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := renderOptions{
				Config:       a.v.GetString("config"),
				In:           a.v.GetString("in"),
				Out:          a.v.GetString("out"),
				Block:        a.v.GetInt("block"),
				BitDepth:     a.v.GetInt("bit-depth"),
				Compensate:   a.v.GetBool("compensate"),
				Realtime:     a.v.GetBool("realtime"),
				MetricsAddr:  a.v.GetString("metrics-addr"),
				PollInterval: a.v.GetDuration("poll-interval"),
			}

			return render(cmd.Context(), opts, a.log)
		},
	}

	f := cmd.Flags()
	f.String("config", "", "channel topology YAML (required)")
	f.String("in", "", "input WAV or FLAC file (required)")
	f.String("out", "", "output WAV file (required)")
	f.Int("block", 0, "block size in samples, overrides the topology")
	f.Int("bit-depth", 0, "output bit depth, defaults to the input's")
	f.Bool("compensate", false, "remove the channel latency from the output")
	f.Bool("realtime", false, "pace blocks to wall-clock time")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while rendering")
	f.Duration("poll-interval", 100*time.Millisecond, "peak meter poll interval for metrics")

	return cmd
}

func (o renderOptions) validate() error {
	for name, v := range map[string]string{"config": o.Config, "in": o.In, "out": o.Out} {
		if v == "" {
			return fmt.Errorf("%w: --%s", errMissingFlag, name)
		}
	}

	return nil
}

func render(ctx context.Context, opts renderOptions, log *slog.Logger) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := opts.validate(); err != nil {
		return err
	}

	doc, err := config.LoadFile(opts.Config)
	if err != nil {
		return err
	}

	clip, err := audiofile.ReadFile(opts.In)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.In, err)
	}

	if doc.SampleRate != float64(clip.SampleRate) {
		log.Info("using input sample rate",
			slog.Float64("topology", doc.SampleRate),
			slog.Int("input", clip.SampleRate))

		doc.SampleRate = float64(clip.SampleRate)
	}

	if opts.Block > 0 {
		doc.BlockSize = opts.Block
	}

	e, err := config.Build(doc, plugins.DefaultRegistry(), engine.WithLogger(log))
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, e.Close())
	}()

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(ctx, opts.MetricsAddr, e, opts.PollInterval, log)
		if err != nil {
			return err
		}

		defer func() {
			err = errors.Join(err, stop())
		}()
	}

	start := time.Now()

	out, err := run(ctx, e, clip, opts)
	if err != nil {
		return err
	}

	depth := clip.BitDepth
	if opts.BitDepth > 0 {
		depth = opts.BitDepth
	}

	if err := audiofile.WriteFile(opts.Out, &audiofile.Audio{SampleRate: clip.SampleRate, BitDepth: depth, Channels: out}); err != nil {
		return fmt.Errorf("writing %s: %w", opts.Out, err)
	}

	report(e, log)

	log.Info("render complete",
		slog.String("engine", e.ID().String()),
		slog.Int("frames", clip.Frames()),
		slog.Int("channels", len(out)),
		slog.Duration("elapsed", time.Since(start)))

	return nil
}

// run processes clip through e and returns one output per engine channel.
// With compensation the engine is flushed with silence and each channel is
// shifted by its latency.
func run(ctx context.Context, e *engine.Engine, clip *audiofile.Audio, opts renderOptions) ([][]float32, error) {
	cfg := e.Config()
	frames := clip.Frames()

	bufs := make([][]float32, cfg.Channels)
	out := make([][]float32, cfg.Channels)

	for ch := range bufs {
		bufs[ch] = make([]float32, cfg.BlockSize)
		out[ch] = make([]float32, 0, frames)
	}

	var pace *time.Ticker
	if opts.Realtime {
		pace = time.NewTicker(time.Duration(cfg.BlockDurationSeconds() * float64(time.Second)))
		defer pace.Stop()
	}

	block := func(pos, n int, input bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		for ch, buf := range bufs {
			buf = buf[:n]
			clear(buf)

			if input && ch < len(clip.Channels) && pos < len(clip.Channels[ch]) {
				copy(buf, clip.Channels[ch][pos:])
			}

			bufs[ch] = buf
		}

		e.ProcessBlock(bufs)

		for ch := range out {
			out[ch] = append(out[ch], bufs[ch][:n]...)
			bufs[ch] = bufs[ch][:cfg.BlockSize]
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace.C:
			}
		}

		return nil
	}

	for pos := 0; pos < frames; pos += cfg.BlockSize {
		if err := block(pos, min(cfg.BlockSize, frames-pos), true); err != nil {
			return nil, err
		}
	}

	if !opts.Compensate {
		return out, nil
	}

	latency := make([]int, cfg.Channels)
	flush := 0

	for ch := range latency {
		latency[ch] = e.Latency(ch)
		flush = max(flush, latency[ch])
	}

	for done := 0; done < flush; done += cfg.BlockSize {
		if err := block(0, min(cfg.BlockSize, flush-done), false); err != nil {
			return nil, err
		}
	}

	for ch := range out {
		out[ch] = out[ch][latency[ch] : latency[ch]+frames]
	}

	return out, nil
}

// report logs every plugin that is bypassed or reports a status.
func report(e *engine.Engine, log *slog.Logger) {
	for ch := range e.Config().Channels {
		for _, s := range e.Slots(ch) {
			if !s.Bypassed && s.Status == "" {
				continue
			}

			log.Warn("plugin degraded",
				slog.Int("channel", s.Channel),
				slog.Int("slot", s.Slot),
				slog.String("plugin", s.Name),
				slog.Bool("bypassed", s.Bypassed),
				slog.String("status", s.Status))
		}
	}
}
