// Command authzcheck loads an authorization rule file and answers a single
// access-control query against it, printing "granted" or "denied" and
// exiting 0 or 1 — a thin smoke-test surface over internal/authz, grounded
// in the teacher's cmd/server/main.go wiring (cobra + viper + godotenv +
// tint-over-slog).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/svnauthz/engine/internal/authz"
	"github.com/svnauthz/engine/internal/authzconfig"
	"github.com/svnauthz/engine/internal/authzspec"
	"github.com/svnauthz/engine/internal/authzsource"
	"github.com/svnauthz/engine/internal/utils"
	"github.com/svnauthz/engine/internal/version"
)

var (
	flagUser       string
	flagRepository string
	flagPath       string
	flagRights     string
	flagRecursive  bool
	dotenvLoaded   bool
)

var rootCmd = &cobra.Command{
	Use:     "authzcheck",
	Short:   "Check path-based access-control decisions against a rule file",
	Version: version.Detailed(),
	RunE:    run,
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("config", "f", "", "Path to config file (e.g., authzcheck.yaml)")
	rootCmd.Flags().String("rules", authzconfig.DefaultRulesSource, "Path or URL to the authorization rule file")
	rootCmd.Flags().Int("cache-size", authzconfig.DefaultCacheSize, "Per-(user,repository) filtered-tree cache size")
	rootCmd.Flags().String("log-format", authzconfig.DefaultLogFormat, "Log format: tint or json")
	rootCmd.Flags().String("audit-log", authzconfig.DefaultAuditLog, "Optional file to additionally append denied-access decisions to, as JSON")

	rootCmd.Flags().StringVarP(&flagUser, "user", "u", "", "Requesting user (omit for the anonymous principal)")
	rootCmd.Flags().StringVarP(&flagRepository, "repo", "R", "", "Repository name (omit to match rules with no repository selector)")
	rootCmd.Flags().StringVarP(&flagPath, "path", "p", "/", "Path to check access for")
	rootCmd.Flags().StringVar(&flagRights, "rights", "r", `Required rights: any combination of "r" and "w"`)
	rootCmd.Flags().BoolVar(&flagRecursive, "recursive", false, "Require rights over the entire subtree rooted at path")

	loaded, err := authzconfig.LoadDotenv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dotenvLoaded = loaded
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := authzconfig.Load(cmd)
	if err != nil {
		cmd.SilenceUsage = false
		return err
	}

	handler, closeHandler, err := newLogHandler(cfg.LogFormat, cfg.AuditLog)
	if err != nil {
		return err
	}
	defer closeHandler()

	logger := slog.New(handler)
	slog.SetDefault(logger)
	logger.Info("authzcheck config", "dotenvLoaded", dotenvLoaded, "rulesSource", cfg.RulesSource, "cacheSize", cfg.CacheSize, "auditLog", cfg.AuditLog)

	source := resolveSource(cfg.RulesSource)
	reader, err := source.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	ruleFile, err := authzspec.LoadReader(reader)
	if err != nil {
		return err
	}

	acls, err := authzspec.Compile(ruleFile)
	if err != nil {
		return err
	}

	rights, err := parseRights(flagRights)
	if err != nil {
		return err
	}
	if flagRecursive {
		rights |= authz.RightRecursive
	}

	handle := authz.NewHandle(acls, cfg.CacheSize)

	var user *string
	if flagUser != "" {
		user = &flagUser
	}
	var repository *string
	if flagRepository != "" {
		repository = &flagRepository
	}

	granted, err := handle.CheckAccess(repository, &flagPath, user, rights)
	if err != nil {
		logger.Error("check access", "error", err)
		return err
	}

	decisionAttrs := []any{"user", flagUser, "repo", flagRepository, "path", flagPath, "rights", flagRights, "recursive", flagRecursive}
	if granted {
		logger.Info("access decision", append(decisionAttrs, "granted", true)...)
		fmt.Println("granted")
		return nil
	}
	// Logged at Warn, not Info, so the audit handler (which only handles
	// Warn and above) captures denied decisions without also capturing
	// every routine granted one.
	logger.Warn("access decision", append(decisionAttrs, "granted", false)...)
	fmt.Println("denied")
	return errDenied
}

var errDenied = errors.New("access denied")

func parseRights(spec string) (authz.Rights, error) {
	var rights authz.Rights
	for _, c := range spec {
		switch c {
		case 'r':
			rights |= authz.RightRead
		case 'w':
			rights |= authz.RightWrite
		default:
			return 0, fmt.Errorf("authzcheck: unrecognized rights character %q in --rights", c)
		}
	}
	return rights, nil
}

// resolveSource picks a LocalFileSource or RepoFileSource based on whether
// rulesSource parses as an http(s) URL.
func resolveSource(rulesSource string) authzsource.Source {
	if u, err := url.Parse(rulesSource); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return authzsource.RepoFileSource{URL: rulesSource}
	}
	return authzsource.LocalFileSource{Path: rulesSource}
}

// newLogHandler builds the primary stdout handler (tint for humans, JSON for
// "prod"-style consumption) and, when auditLogPath is set, fans logs out to
// it plus a JSON-over-file audit sink restricted to Warn-and-above — the
// denied-access decisions logged in run(), per SPEC_FULL.md section 2.1.
// The returned closer must be called once logging is done to flush/close the
// audit file; it is a no-op when no audit log was configured.
func newLogHandler(format, auditLogPath string) (slog.Handler, func() error, error) {
	stdout := stdoutHandler(format)

	if auditLogPath == "" {
		return stdout, func() error { return nil }, nil
	}

	f, err := os.OpenFile(auditLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("authzcheck: opening audit log %s: %w", auditLogPath, err)
	}
	audit := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelWarn})

	return utils.NewMultiLogHandler(stdout, audit), f.Close, nil
}

func stdoutHandler(format string) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.DateTime,
	})
}
