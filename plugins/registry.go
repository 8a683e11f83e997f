// Package plugins registers the built-in plugin types with a configuration
// registry.
package plugins

import (
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/config"
	"github.com/cwbudde/algo-hotmic/host/plugin"
	"github.com/cwbudde/algo-hotmic/plugins/analyzers"
	"github.com/cwbudde/algo-hotmic/plugins/denoise"
	"github.com/cwbudde/algo-hotmic/plugins/dynamics"
	"github.com/cwbudde/algo-hotmic/plugins/routing"
	"github.com/cwbudde/algo-hotmic/plugins/spectral"
	"github.com/cwbudde/algo-hotmic/plugins/utility"
)

const (
	defaultPitchMinHz = 60.0
	defaultPitchMaxHz = 800.0
)

// DefaultRegistry returns a registry holding every built-in plugin type.
//
// Options read by the factories:
//
//	copy-send        target (channel index, required)
//	device-input     source (input index, default: the plugin's channel)
//	signal-blocker   signals ("pitch-hz|formant1-hz")
//	pitch-tracker    min-hz, max-hz
//	formant-tracker  order (0 picks one from the sample rate)
//	denoiser         model (name passed to denoise.Register)
//
//nolint:funlen
func DefaultRegistry() *config.Registry {
	r := config.NewRegistry()

	r.MustRegister("gain", func(config.Context) (plugin.Plugin, error) {
		return utility.NewGain(), nil
	})
	r.MustRegister("signal-blocker", func(ctx config.Context) (plugin.Plugin, error) {
		mask, err := ctx.Options.Mask("signals", analysis.None)
		if err != nil {
			return nil, err
		}

		return utility.NewBlocker(mask), nil
	})
	r.MustRegister("copy-send", func(ctx config.Context) (plugin.Plugin, error) {
		target, err := ctx.Options.Int("target", -1)
		if err != nil {
			return nil, err
		}

		return wrap(routing.NewSend(target))
	})
	r.MustRegister("bus-input", func(config.Context) (plugin.Plugin, error) {
		return routing.NewBusInput(), nil
	})
	r.MustRegister("device-input", func(ctx config.Context) (plugin.Plugin, error) {
		source, err := ctx.Options.Int("source", ctx.Channel)
		if err != nil {
			return nil, err
		}

		return routing.NewDeviceInput(source), nil
	})
	r.MustRegister("pitch-tracker", func(ctx config.Context) (plugin.Plugin, error) {
		lo, err := ctx.Options.Float("min-hz", defaultPitchMinHz)
		if err != nil {
			return nil, err
		}

		hi, err := ctx.Options.Float("max-hz", defaultPitchMaxHz)
		if err != nil {
			return nil, err
		}

		return wrap(analyzers.NewPitchTracker(lo, hi))
	})
	r.MustRegister("formant-tracker", func(ctx config.Context) (plugin.Plugin, error) {
		order, err := ctx.Options.Int("order", 0)
		if err != nil {
			return nil, err
		}

		return wrap(analyzers.NewFormantTracker(order))
	})
	r.MustRegister("speech-detector", func(config.Context) (plugin.Plugin, error) {
		return analyzers.NewSpeechDetector(), nil
	})
	r.MustRegister("sibilance-detector", func(config.Context) (plugin.Plugin, error) {
		return analyzers.NewSibilanceDetector(), nil
	})
	r.MustRegister("onset-detector", func(config.Context) (plugin.Plugin, error) {
		return analyzers.NewOnsetDetector(), nil
	})
	r.MustRegister("noise-reduction", func(config.Context) (plugin.Plugin, error) {
		return spectral.NewNoiseReduction(), nil
	})
	r.MustRegister("spectral-contrast", func(config.Context) (plugin.Plugin, error) {
		return spectral.NewSpectralContrast(), nil
	})
	r.MustRegister("spectrum", func(config.Context) (plugin.Plugin, error) {
		return spectral.NewSpectrum(), nil
	})
	r.MustRegister("speech-gate", func(config.Context) (plugin.Plugin, error) {
		return dynamics.NewSpeechGate(), nil
	})
	r.MustRegister("compressor", func(config.Context) (plugin.Plugin, error) {
		return dynamics.NewCompressor(), nil
	})
	r.MustRegister("deesser", func(config.Context) (plugin.Plugin, error) {
		return dynamics.NewDeEsser(), nil
	})
	r.MustRegister("denoiser", func(ctx config.Context) (plugin.Plugin, error) {
		name := ctx.Options.String("model", "")
		if name == "" {
			// Initialize reports the missing model and the engine bypasses it.
			return denoise.New(nil), nil
		}

		l, err := denoise.Lookup(name)
		if err != nil {
			return nil, err
		}

		return denoise.New(l), nil
	})

	return r
}

// wrap keeps a failed constructor from returning a typed nil plugin.
func wrap[P plugin.Plugin](p P, err error) (plugin.Plugin, error) {
	if err != nil {
		return nil, err
	}

	return p, nil
}
