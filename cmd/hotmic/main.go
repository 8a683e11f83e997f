// Command hotmic renders audio files through a channel topology and prints
// information about the building blocks of the host.
//
// Usage:
//
//	hotmic render --config chain.yaml --in voice.wav --out clean.wav
//	hotmic render --config chain.yaml --in voice.flac --out clean.wav --metrics-addr :9090 --realtime
//	hotmic signals
//	hotmic cola --size 1024 --hop 256 --analysis hann --synthesis rectangular
//
// Every flag can also be set through an environment variable with the
// HOTMIC_ prefix, e.g. HOTMIC_LOG_LEVEL=debug.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
