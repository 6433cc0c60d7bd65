package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind         string
	environment  string
	pingInterval time.Duration
	pollTimeout  time.Duration
	pollWait     time.Duration
	port         int
	prefix       string
	profile      bool
	roomTimeout  time.Duration
	sendBuffer   int
	tlsCert      string
	tlsKey       string
	verbose      bool
	version      bool
}

func defaultConfig() *Config {
	return &Config{
		bind:         "0.0.0.0",
		environment:  "development",
		pingInterval: 25 * time.Second,
		pollTimeout:  60 * time.Second,
		pollWait:     25 * time.Second,
		port:         8080,
		roomTimeout:  60 * time.Second,
		sendBuffer:   64,
	}
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.roomTimeout <= 0 {
		return fmt.Errorf("invalid room timeout (must be positive): %s", c.roomTimeout)
	}
	if c.pingInterval <= 0 {
		return fmt.Errorf("invalid ping interval (must be positive): %s", c.pingInterval)
	}
	if c.pollWait <= 0 || c.pollTimeout <= c.pollWait {
		return fmt.Errorf("invalid polling timeouts (need 0 < --poll-wait < --poll-timeout): %s, %s", c.pollWait, c.pollTimeout)
	}
	if c.sendBuffer < 1 {
		return fmt.Errorf("invalid send buffer (must be at least 1): %d", c.sendBuffer)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	def := defaultConfig()

	v := viper.New()
	v.SetEnvPrefix("PUZZLEPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "puzzleparty",
		Short:         "A cooperative real-time puzzle game for any number of players.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", def.bind, "address to bind to (env: PUZZLEPARTY_BIND)")
	fs.StringVar(&cfg.environment, "environment", def.environment, "environment name reported by the root endpoint (env: PUZZLEPARTY_ENVIRONMENT)")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", def.pingInterval, "interval between websocket keepalive pings (env: PUZZLEPARTY_PING_INTERVAL)")
	fs.DurationVar(&cfg.pollTimeout, "poll-timeout", def.pollTimeout, "time before an unpolled long-polling session is disconnected (env: PUZZLEPARTY_POLL_TIMEOUT)")
	fs.DurationVar(&cfg.pollWait, "poll-wait", def.pollWait, "maximum time a long-poll request waits for messages (env: PUZZLEPARTY_POLL_WAIT)")
	fs.IntVarP(&cfg.port, "port", "p", def.port, "port to listen on (env: PUZZLEPARTY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PUZZLEPARTY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PUZZLEPARTY_PROFILE)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", def.roomTimeout, "time before an empty room is removed (env: PUZZLEPARTY_ROOM_TIMEOUT)")
	fs.IntVar(&cfg.sendBuffer, "send-buffer", def.sendBuffer, "outbound messages queued per connection before it is dropped (env: PUZZLEPARTY_SEND_BUFFER)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PUZZLEPARTY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PUZZLEPARTY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PUZZLEPARTY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PUZZLEPARTY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("puzzleparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
