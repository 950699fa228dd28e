// SPDX-License-Identifier: EPL-2.0

// Package cli implements the audclip command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ik5/audclip"
	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/compose"
	"github.com/ik5/audclip/config"
	"github.com/ik5/audclip/internal/metrics"
	"github.com/ik5/audclip/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every command shares. It is built before a command runs
// and torn down after it returns.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	kit      *audclip.Kit
	composer *compose.Composer
	metrics  *metrics.Server
}

type rootFlags struct {
	config   string
	envFiles []string
	logLevel string
	metrics  string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	var (
		flags rootFlags
		a     = &app{}
	)

	root := &cobra.Command{
		Use:           "audclip",
		Short:         "Edit, record and inspect short audio clips",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "YAML configuration file")
	pf.StringSliceVar(&flags.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	pf.StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	pf.StringVar(&flags.metrics, "metrics-addr", "", "serve prometheus metrics on this address")

	root.AddCommand(
		newLevelsCommand(a),
		newTrimCommand(a),
		newExciseCommand(a),
		newCombineCommand(a),
		newConvertCommand(a, compose.OpNormalize),
		newConvertCommand(a, compose.OpExport),
		newEditCommand(a),
		newRecordCommand(a),
		newUploadCommand(a),
	)
	return root, a
}

// Execute runs the command line with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root, a := newRoot()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if terr := a.teardown(ctx); err == nil {
		err = terr
	}
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := config.Load(flags.config, flags.envFiles...)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = logger.LogLevel(strings.ToLower(flags.logLevel))
	}
	if flags.metrics != "" {
		cfg.Metrics.Addr = flags.metrics
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Log.Console = cmd.ErrOrStderr()

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.cfg = cfg
	a.log = log.With(zap.String("command", cmd.Name()))

	a.kit = audclip.New(cfg, audclip.WithLogger(a.log))
	a.composer = a.kit.Composer

	a.metrics = metrics.NewServer(cfg.Metrics.Addr, a.log)
	if _, err := a.metrics.Start(); err != nil {
		return fmt.Errorf("starting metrics server: %w", err)
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.log == nil {
		return nil
	}
	defer func() { _ = a.log.Sync() }()

	if a.kit != nil {
		if err := a.kit.Close(); err != nil {
			a.log.Warn("releasing pipeline", zap.Error(err))
		}
	}
	if a.metrics == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return a.metrics.Stop(stopCtx)
}

// fileAsset describes an existing file. The ID is derived from the absolute
// path so cached levels survive between runs.
func fileAsset(path string) (asset.Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return asset.Asset{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return asset.Asset{}, err
	}
	if info.IsDir() {
		return asset.Asset{}, fmt.Errorf("%s is a directory", path)
	}
	base := filepath.Base(abs)
	return asset.Asset{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String(),
		Path:      abs,
		Title:     strings.TrimSuffix(base, filepath.Ext(base)),
		CreatedAt: info.ModTime().UTC(),
	}, nil
}

// parseRange reads "START:END" where both sides are Go durations.
func parseRange(s string) (compose.TimeRange, error) {
	from, to, ok := strings.Cut(s, ":")
	if !ok {
		return compose.TimeRange{}, fmt.Errorf("range %q: want START:END", s)
	}
	start, err := time.ParseDuration(strings.TrimSpace(from))
	if err != nil {
		return compose.TimeRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	end, err := time.ParseDuration(strings.TrimSpace(to))
	if err != nil {
		return compose.TimeRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	return compose.TimeRange{Start: start, End: end}, nil
}

func parseRanges(specs []string) ([]compose.TimeRange, error) {
	out := make([]compose.TimeRange, 0, len(specs))
	for _, s := range specs {
		r, err := parseRange(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
