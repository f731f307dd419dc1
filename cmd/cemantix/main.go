// Package main is the cemantix CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/j0hanj0han/cemantix/internal/cli"
	"github.com/j0hanj0han/cemantix/internal/config"
	"github.com/j0hanj0han/cemantix/internal/hints"
	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/j0hanj0han/cemantix/internal/oracle"
	"github.com/j0hanj0han/cemantix/internal/puzzle"
	"github.com/j0hanj0han/cemantix/internal/server"
	"github.com/j0hanj0han/cemantix/internal/solver"
	"github.com/j0hanj0han/cemantix/internal/storage"
	"github.com/j0hanj0han/cemantix/internal/vector"
	"github.com/j0hanj0han/cemantix/internal/watcher"
	"github.com/j0hanj0han/cemantix/pkg/utils"
	ucli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/cemantix/config.yaml"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func outputFlag() *ucli.StringFlag {
	return &ucli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output format: text or json",
		Value:   string(cli.OutputText),
	}
}

func newApp() *ucli.App {
	return &ucli.App{
		Name:    "cemantix",
		Usage:   "Solve Cémantix puzzles from similarity scores alone",
		Version: version,
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				Value:   defaultConfigPath,
			},
			&ucli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging (every probe, state changes)",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:   "solve",
				Usage:  "Solve one puzzle",
				Action: solveCommand,
				Flags: []ucli.Flag{
					&ucli.StringFlag{
						Name:    "puzzle",
						Aliases: []string{"p"},
						Usage:   "puzzle number (default: today's puzzle)",
					},
					&ucli.StringFlag{
						Name:  "simulate",
						Usage: "score against this local word instead of the remote server",
					},
					&ucli.BoolFlag{
						Name:  "save",
						Usage: "archive the session in the database",
					},
					&ucli.BoolFlag{
						Name:  "hints",
						Usage: "print hint words once solved",
						Value: true,
					},
					outputFlag(),
				},
			},
			{
				Name:   "convert",
				Usage:  "Convert a word2vec model into a fast-load snapshot",
				Action: convertCommand,
				Flags: []ucli.Flag{
					&ucli.StringFlag{
						Name:     "in",
						Usage:    "word2vec model path",
						Required: true,
					},
					&ucli.StringFlag{
						Name:     "out",
						Usage:    "snapshot path",
						Required: true,
					},
					&ucli.StringFlag{
						Name:  "format",
						Usage: "model format: word2vec-bin or word2vec-text",
						Value: vector.FormatBinary,
					},
					&ucli.IntFlag{
						Name:  "limit",
						Usage: "keep only the first N words (0 = all)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
			},
			{
				Name:   "history",
				Usage:  "List archived sessions",
				Action: historyCommand,
				Flags: []ucli.Flag{
					&ucli.IntFlag{
						Name:  "limit",
						Usage: "number of sessions to list",
						Value: 20,
					},
					outputFlag(),
				},
			},
			{
				Name:   "status",
				Usage:  "Show configuration, vocabulary, and archive size",
				Action: statusCommand,
				Flags:  []ucli.Flag{outputFlag()},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *ucli.Context) error {
					fmt.Fprintf(c.App.Writer, "cemantix version %s\n", version)
					return nil
				},
			},
		},
	}
}

// loadConfig loads config from path. When path is the default, a config.yaml in the current
// directory takes precedence, and a missing default file falls back to built-in defaults.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config named by the global flags and builds the logger.
func setup(c *ucli.Context) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || c.Bool("debug")
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func embeddingSource(cfg *config.Config) vector.Source {
	return vector.Source{
		ModelPath:    cfg.Embedding.ModelPath,
		Format:       cfg.Embedding.Format,
		SnapshotPath: cfg.Embedding.SnapshotPath,
		Limit:        cfg.Embedding.Limit,
	}
}

// reloadSource picks what to load after changed was written. A new model supersedes the
// snapshot, which may now be stale.
func reloadSource(cfg *config.Config, changed string) vector.Source {
	src := embeddingSource(cfg)
	if src.SnapshotPath == "" || !samePath(changed, src.SnapshotPath) {
		src.SnapshotPath = ""
	}
	return src
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func solveCommand(c *ucli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	format, err := cli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	puzzleID := c.String("puzzle")
	if puzzleID == "" {
		puzzleID = puzzle.Today()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	space, err := vector.Open(ctx, embeddingSource(cfg))
	if err != nil {
		return fmt.Errorf("%w: %v", solver.ErrEmbeddingSpaceUnavailable, err)
	}
	logger.Info("embedding space loaded",
		zap.Int("vocabulary", space.Size()),
		zap.Int("dimensions", space.Dimensions()),
		zap.Duration("took", time.Since(start)))

	var o oracle.Oracle
	if word := c.String("simulate"); word != "" {
		sim, err := oracle.NewSimulated(ctx, space, word)
		if err != nil {
			return err
		}
		o = sim
	} else {
		o = oracle.NewHTTPClient(&cfg.Oracle, oracle.WithLogger(logger))
	}

	result, err := solver.New(space, o, &cfg.Solver, solver.WithLogger(logger)).Solve(ctx, puzzleID)
	if err != nil {
		return err
	}
	var h *models.Hints
	if c.Bool("hints") {
		src, _ := o.(oracle.NearbySource)
		h = hints.ForResult(ctx, src, result, logger)
	}

	if c.Bool("save") {
		if err := archive(cfg, result, h); err != nil {
			return err
		}
	}
	return cli.WriteSolveResult(c.App.Writer, result, h, format)
}

// archive stores a finished session. It runs on a fresh context so an interrupted solve
// is still recorded.
func archive(cfg *config.Config, result *models.SolveResult, h *models.Hints) error {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.SaveSession(ctx, &models.Session{
		ID:     uuid.NewString(),
		Puzzle: result.Puzzle,
		Status: models.SessionFinished,
		Result: result,
		Hints:  h,
	})
}

func convertCommand(c *ucli.Context) error {
	_, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in, out := c.String("in"), c.String("out")
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	start := time.Now()
	space, err := vector.LoadWord2Vec(c.Context, f, c.String("format"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("load model %s: %w", in, err)
	}
	if space.Size() == 0 {
		return vector.ErrEmptySpace
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	if err := space.Save(out); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	logger.Info("snapshot written",
		zap.String("path", out),
		zap.Int("words", space.Size()),
		zap.Duration("took", time.Since(start)))
	fmt.Fprintf(c.App.Writer, "Wrote %d words × %d dims to %s\n", space.Size(), space.Dimensions(), out)
	return nil
}

func serveCommand(c *ucli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	space, err := vector.Open(c.Context, embeddingSource(cfg))
	if err != nil {
		// Solve requests answer 503 until a model shows up.
		logger.Warn("embedding space not loaded", zap.Error(err))
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	newOracle := func() oracle.Oracle {
		return oracle.NewHTTPClient(&cfg.Oracle, oracle.WithLogger(logger))
	}
	srv := server.NewServer(space, newOracle, store, cfg, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Model {
		w := watcher.NewWatcher(
			[]string{cfg.Embedding.ModelPath, cfg.Embedding.SnapshotPath},
			func(path string) {
				next, err := vector.Open(watchCtx, reloadSource(cfg, path))
				if err != nil {
					logger.Warn("model reload failed", zap.String("path", path), zap.Error(err))
					return
				}
				srv.SetSpace(next)
			},
			watcher.WithLogger(logger),
		)
		if err := w.Start(watchCtx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func historyCommand(c *ucli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	format, err := cli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions(c.Context, 0, c.Int("limit"))
	if err != nil {
		return err
	}
	total, err := store.CountSessions(c.Context)
	if err != nil {
		return err
	}
	return cli.WriteSessions(c.App.Writer, sessions, total, format)
}

func statusCommand(c *ucli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	format, err := cli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	st := &cli.Status{
		ModelPath:    cfg.Embedding.ModelPath,
		SnapshotPath: cfg.Embedding.SnapshotPath,
		DatabasePath: cfg.Storage.DatabasePath,
		OracleURL:    cfg.Oracle.BaseURL,
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if st.Sessions, err = store.CountSessions(c.Context); err != nil {
		return err
	}

	// Only the snapshot is cheap enough to open here; parsing the model can take seconds.
	if snap := cfg.Embedding.SnapshotPath; snap != "" {
		if space, err := vector.Open(c.Context, vector.Source{SnapshotPath: snap}); err == nil {
			st.Vocabulary, st.Dimensions = space.Size(), space.Dimensions()
		} else {
			logger.Debug("snapshot not readable", zap.String("path", snap), zap.Error(err))
		}
	}

	paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Embedding.SnapshotPath)
	if st.DiskUsageBytes, err = storage.DiskUsageBytes(paths...); err != nil {
		return err
	}
	return cli.WriteStatus(c.App.Writer, st, format)
}
