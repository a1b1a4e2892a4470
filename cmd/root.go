package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lukman83/beast-antidetect/config"
	"github.com/lukman83/beast-antidetect/internal/browser"
	"github.com/lukman83/beast-antidetect/internal/geo"
	"github.com/lukman83/beast-antidetect/internal/identity"
	"github.com/lukman83/beast-antidetect/internal/observability"
	"github.com/lukman83/beast-antidetect/internal/progress"
	"github.com/lukman83/beast-antidetect/internal/stealth"
	"github.com/lukman83/beast-antidetect/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "beast",
	Short: "Beast - anti-detect browser identity CLI, API & MCP server",
	Long: "Launches isolated browser sessions that present generated or custom " +
		"fingerprints, behind optional proxies, with persistent per-profile storage.",
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("profile-root", "", "Directory holding persistent browser profiles")
	pf.String("browser", "", "Path to a Chrome/Chromium binary (default: auto-detect)")
	pf.Bool("headless", true, "Run the browser headless")
	pf.Int("max-sessions", 0, "Maximum concurrent browser sessions")
	pf.String("delay-profile", "", "Delay between bulk items: none, cautious, normal, aggressive")
	pf.Bool("respect-robots", false, "Refuse targets disallowed by robots.txt")
	pf.String("geoip-db", "", "Path to a GeoLite2/GeoIP2 City database")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console, json")
	pf.String("log-file", "", "Also write JSON logs to this rotated file")
}

func initConfig() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	// Override from flags
	pf := rootCmd.PersistentFlags()
	if v, _ := pf.GetString("profile-root"); v != "" {
		cfg.ProfileRoot = v
	}
	if v, _ := pf.GetString("browser"); v != "" {
		cfg.BrowserPath = v
	}
	if pf.Changed("headless") {
		cfg.Headless, _ = pf.GetBool("headless")
	}
	if v, _ := pf.GetInt("max-sessions"); v > 0 {
		cfg.MaxSessions = v
	}
	if v, _ := pf.GetString("delay-profile"); v != "" {
		cfg.DelayProfile = v
	}
	if pf.Changed("respect-robots") {
		cfg.RespectRobots, _ = pf.GetBool("respect-robots")
	}
	if v, _ := pf.GetString("geoip-db"); v != "" {
		cfg.GeoIPDatabase = v
	}
	if v, _ := pf.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := pf.GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := pf.GetString("log-file"); v != "" {
		cfg.LogFile = v
	}

	logger = observability.NewLogger(cfg)
}

// newService wires the launcher, generator and optional geo database.
// The returned func releases what newService opened.
func newService() (*identity.Service, func(), error) {
	var opts []identity.Option
	closeFn := func() {}

	if cfg.GeoIPDatabase != "" {
		db, err := geo.Open(cfg.GeoIPDatabase)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, identity.WithGeo(db))
		closeFn = func() {
			if err := db.Close(); err != nil {
				logger.Debug("close geoip database", zap.Error(err))
			}
		}
	}

	launcher := identity.BrowserLauncher{Launcher: browser.NewLauncher(cfg, logger)}
	svc := identity.NewService(cfg, launcher, stealth.NewRandomGenerator(), logger, opts...)
	return svc, closeFn, nil
}

// signalContext is cancelled on SIGINT or SIGTERM so sessions are torn down.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// withSpinner shows progress reports on stderr until stop is called.
func withSpinner(ctx context.Context, cmd *cobra.Command, msg string) (context.Context, func()) {
	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(msg)
	return progress.With(ctx, spin.Update), spin.Stop
}
