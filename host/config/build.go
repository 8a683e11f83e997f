package config

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/engine"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

var ErrUnknownParam = errors.New("config: unknown parameter")

type paramIndexer interface {
	Index(name string) int
}

// Build creates the plugins of doc from registry, adds them to a new
// engine and prepares it. On error every plugin created so far is closed.
func Build(doc *Document, registry *Registry, opts ...engine.Option) (*engine.Engine, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	e, err := engine.New(doc.ProcessorConfig(), opts...)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := populate(e, doc, registry); err != nil {
		return nil, errors.Join(err, e.Close())
	}

	if err := e.Prepare(); err != nil {
		return nil, errors.Join(fmt.Errorf("config: %w", err), e.Close())
	}

	return e, nil
}

func populate(e *engine.Engine, doc *Document, registry *Registry) error {
	cfg := e.Config()

	for ch, channel := range doc.Channels {
		mask, err := analysis.ParseMask(channel.Request...)
		if err != nil {
			return fmt.Errorf("config: channel %d: %w", ch, err)
		}

		if err := e.Request(ch, mask); err != nil {
			return fmt.Errorf("config: channel %d: %w", ch, err)
		}

		for i, entry := range channel.Plugins {
			factory := registry.Lookup(entry.Type)
			if factory == nil {
				return fmt.Errorf("%w: %q (channel %d plugin %d)", ErrUnknownPlugin, entry.Type, ch, i)
			}

			p, err := factory(Context{
				SampleRate: cfg.SampleRate,
				BlockSize:  cfg.BlockSize,
				Channels:   cfg.Channels,
				Channel:    ch,
				Options:    entry.Options,
			})
			if err != nil {
				return fmt.Errorf("config: create %s (channel %d plugin %d): %w", entry.Type, ch, i, err)
			}

			if err := configure(p, entry); err != nil {
				return errors.Join(
					fmt.Errorf("config: %s (channel %d plugin %d): %w", entry.Type, ch, i, err),
					p.Close())
			}

			if _, err := e.AddPlugin(ch, p); err != nil {
				return errors.Join(fmt.Errorf("config: %w", err), p.Close())
			}
		}
	}

	return nil
}

func configure(p plugin.Plugin, entry Plugin) error {
	if len(entry.Params) > 0 {
		idx, ok := p.(paramIndexer)
		if !ok {
			return fmt.Errorf("%w: %s has no named parameters", ErrUnknownParam, p.Name())
		}

		for name, v := range entry.Params {
			i := idx.Index(name)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrUnknownParam, name)
			}

			p.SetParameter(i, float32(v))
		}
	}

	if len(entry.State) > 0 {
		w := plugin.NewStateWriter(len(entry.State))
		for _, v := range entry.State {
			w.Float(v)
		}

		p.SetState(w.Bytes())
	}

	return nil
}
