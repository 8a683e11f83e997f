package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-hotmic/internal/logging"
)

const envPrefix = "HOTMIC"

// app carries the state shared by the sub-commands.
type app struct {
	v   *viper.Viper
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New(), log: logging.Discard()}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "hotmic",
		Short:         "Voice processing host",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}

			a.log = logging.New(logging.Config{
				Level:  a.v.GetString("log-level"),
				Format: a.v.GetString("log-format"),
				Output: cmd.ErrOrStderr(),
			})

			return nil
		},
	}

	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")

	if err := a.v.BindPFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(a.renderCommand(), signalsCommand(), colaCommand(a))

	return root
}
