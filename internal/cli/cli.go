// Package cli implements the ghostcanvas command-line interface.
//
// The file commands (instrument, imports, insert, swap) run the source
// transforms on local files, the scene commands inspect scene snapshots,
// and serve runs the editing host that preview frames connect to.
//
// All commands support --verbose (-v) for debug logging and --config to
// pick a settings file other than $XDG_CONFIG_HOME/ghostcanvas/config.toml.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ghostcanvas/pkg/buildinfo"
	"github.com/matzehuels/ghostcanvas/pkg/cache"
	"github.com/matzehuels/ghostcanvas/pkg/config"
	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/instrument"
	"github.com/matzehuels/ghostcanvas/pkg/vfs"
)

const appName = "ghostcanvas"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
	verbose    bool
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "ghostcanvas turns canvas drafts into source code",
		Long: `ghostcanvas is the editing host of a visual UI builder. It keeps the
scene graph of draft elements, writes them into JSX/TSX source at the
element a preview frame reports under the cursor, and keeps every
preview frame in sync with the project files.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ghostcanvas/config.toml)")

	root.AddCommand(c.instrumentCommand())
	root.AddCommand(c.importsCommand())
	root.AddCommand(c.insertCommand())
	root.AddCommand(c.swapCommand())
	root.AddCommand(c.synthCommand())
	root.AddCommand(c.sceneCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// =============================================================================
// Component Factories
// =============================================================================

// newCache opens the configured cache backend. A broken file cache falls
// back to no caching; a broken Redis is an error since it was asked for.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:   cfg.Cache.RedisAddr,
			DB:     cfg.Cache.RedisDB,
			Prefix: cfg.Cache.Prefix,
		})
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func (c *CLI) newInstrumenter(cfg *config.Config, ch cache.Cache) *instrument.Instrumenter {
	return instrument.New(instrument.Options{
		Attribute:  cfg.Instrument.Attribute,
		Extensions: cfg.Instrument.Extensions,
		Cache:      ch,
		TTL:        cfg.Cache.TTL,
		Logger:     c.Logger,
	})
}

// openFS opens the configured project file system. root overrides
// vfs.root for the dir backend.
func openFS(ctx context.Context, cfg *config.Config, root string) (vfs.FS, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.VFS.Backend == config.VFSMongo {
		m, err := vfs.NewMongoFS(ctx, vfs.MongoConfig{
			URI:        cfg.VFS.MongoURI,
			Database:   cfg.VFS.MongoDB,
			Collection: cfg.VFS.Collection,
			Project:    cfg.VFS.Project,
		})
		if err != nil {
			return nil, noop, err
		}
		return m, m.Close, nil
	}
	if root == "" {
		root = cfg.VFS.Root
	}
	d, err := vfs.NewDirFS(root)
	if err != nil {
		return nil, noop, err
	}
	return d, noop, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns cache.dir, or the XDG cache directory (~/.cache/ghostcanvas/).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// projectPath maps a local file to its project path ("/src/App.tsx")
// relative to root, which defaults to the file's directory.
func projectPath(file, root string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	if root == "" {
		return "/" + filepath.Base(abs), nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeInvalidPath, "%s is outside the project root %s", file, root)
	}
	return "/" + filepath.ToSlash(rel), nil
}
