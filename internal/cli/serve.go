package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/ghostcanvas/internal/server"
	"github.com/matzehuels/ghostcanvas/pkg/cache"
	"github.com/matzehuels/ghostcanvas/pkg/session"
	"github.com/matzehuels/ghostcanvas/pkg/vfs"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noWatch bool
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Run the editing host for a project",
		Long: `Serve runs the editing host. Preview frames connect over WebSocket at
/frames/{frameID}/ws, the editor drives the scene through /api, and every
change to the project's files reaches the frames as sync batches.

The project is the directory argument, vfs.root from the config, or a
MongoDB collection when vfs.backend is "mongo".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if noWatch {
				cfg.VFS.Watch = false
			}
			var root string
			if len(args) == 1 {
				root = args[0]
			}
			installLogHooks(c.Logger)

			ch, err := c.newCache(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer ch.Close()

			fs, closeFS, err := openFS(ctx, cfg, root)
			if err != nil {
				return err
			}
			defer closeFS(context.WithoutCancel(ctx))

			reg := session.NewRegistry(session.Options{
				FS:           fs,
				Protocol:     cfg.ProtocolOptions(),
				Sync:         cfg.SyncOptions(),
				Materialize:  cfg.MaterializeOptions(),
				Instrumenter: c.newInstrumenter(cfg, ch),
				Logger:       c.Logger,
			})
			defer reg.CloseAll(context.WithoutCancel(ctx))

			sess, err := reg.Create()
			if err != nil {
				return err
			}
			srv := server.New(reg, server.Options{
				DefaultSession: sess.ID,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Cache:          ch,
				Logger:         c.Logger,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Server.Addr) })

			if dir, ok := fs.(*vfs.DirFS); ok && cfg.VFS.Watch {
				w, err := vfs.NewWatcher(dir, registryListener{reg: reg, logger: c.Logger}, c.Logger)
				if err != nil {
					return err
				}
				g.Go(func() error { return w.Run(gctx) })
				printDetail("Watching %s", dir.Root())
			}
			if fc, ok := ch.(*cache.FileCache); ok && cfg.Cache.PruneSchedule != "" {
				sched, err := schedulePrune(fc, cfg.Cache.PruneSchedule, c.Logger)
				if err != nil {
					return err
				}
				sched.Start()
				g.Go(func() error {
					<-gctx.Done()
					<-sched.Stop().Done()
					return nil
				})
			}

			printSuccess("Serving on %s", StyleLink.Render("http://"+cfg.Server.Addr))
			printKeyValue("Session", sess.ID)
			printKeyValue("Frames", fmt.Sprintf("ws://%s/frames/{frameID}/ws", cfg.Server.Addr))

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:7420)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "ignore edits made outside ghostcanvas")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the instrumentation and artifact caches")
	return cmd
}

// registryListener fans on-disk edits out to every open session's batcher.
type registryListener struct {
	reg    *session.Registry
	logger *log.Logger
}

func (l registryListener) Update(path, text string) error {
	l.logger.Debug("external edit", "path", path)
	var errs []error
	for _, s := range l.reg.List() {
		errs = append(errs, s.Batcher.Update(path, text))
	}
	return errors.Join(errs...)
}

func (l registryListener) Delete(path string) error {
	l.logger.Debug("external delete", "path", path)
	var errs []error
	for _, s := range l.reg.List() {
		errs = append(errs, s.Batcher.Delete(path))
	}
	return errors.Join(errs...)
}

// schedulePrune registers a cron job removing expired file cache entries.
func schedulePrune(fc *cache.FileCache, spec string, logger *log.Logger) (*cron.Cron, error) {
	sched := cron.New()
	_, err := sched.AddFunc(spec, func() {
		n, err := fc.Prune(context.Background())
		if err != nil {
			logger.Warn("cache prune failed", "err", err)
			return
		}
		logger.Debug("cache pruned", "removed", n, "dir", fc.Dir())
	})
	if err != nil {
		return nil, fmt.Errorf("cache.prune_schedule %q: %w", spec, err)
	}
	return sched, nil
}
