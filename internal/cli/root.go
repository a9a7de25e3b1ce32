package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spaceapps-board/internal/client"
)

const (
	apiURLKey  = "api_url"
	timeoutKey = "timeout"
	noColorKey = "no_color"

	defaultAPIURL  = "http://localhost:3001"
	defaultTimeout = 10 * time.Second
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	v      *viper.Viper
	out    io.Writer
	api    *client.Client
	colors bool
}

// NewRootCommand builds boardctl. Settings resolve from flags, then
// BOARDCTL_* environment variables, then an optional config file.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	var cfgFile string

	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Command line client for the Space Apps board API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(cfgFile); err != nil {
				return err
			}
			api, err := client.New(a.v.GetString(apiURLKey), a.v.GetDuration(timeoutKey))
			if err != nil {
				return err
			}
			a.api = api
			a.colors = !a.v.GetBool(noColorKey)
			return nil
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.boardctl.yaml)")
	flags.String("api-url", defaultAPIURL, "base URL of the board API")
	flags.Duration("timeout", defaultTimeout, "request timeout")
	flags.Bool("no-color", false, "disable colored output")
	_ = a.v.BindPFlag(apiURLKey, flags.Lookup("api-url"))
	_ = a.v.BindPFlag(timeoutKey, flags.Lookup("timeout"))
	_ = a.v.BindPFlag(noColorKey, flags.Lookup("no-color"))

	root.AddCommand(
		newListCommand(a),
		newAddCommand(a),
		newGetCommand(a),
		newDeleteCommand(a),
		newProbeCommand(a),
	)
	return root
}

func (a *app) loadConfig(cfgFile string) error {
	a.v.SetEnvPrefix("boardctl")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".boardctl")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.v.GetDuration(timeoutKey))
}
