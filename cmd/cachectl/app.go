package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goforj/cacheprovider"
	"github.com/goforj/cacheprovider/cachecore"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	exitOK    = 0
	exitMiss  = 1
	exitError = 2
)

// errMiss signals a cache miss; it maps to exitMiss without a message.
var errMiss = errors.New("cache miss")

type app struct {
	out      io.Writer
	logger   *zap.Logger
	provider *cacheprovider.Provider
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout}
	cmd := a.command()
	cmd.Writer = stdout
	cmd.ErrWriter = stderr

	err := cmd.Run(ctx, args)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errMiss):
		return exitMiss
	default:
		fmt.Fprintln(stderr, err)
		return exitError
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:  "cachectl",
		Usage: "inspect and modify configured caches",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "cache configuration file (YAML)",
				Sources: cli.EnvVars("CACHECTL_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "name of the cache to operate on",
				Value: cacheprovider.DefaultCacheName,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "development logging at debug level",
			},
		},
		Before:         a.setup,
		After:          a.teardown,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print the value stored under KEY",
				ArgsUsage: "KEY",
				Action:    a.get,
			},
			{
				Name:      "set",
				Usage:     "store VALUE under KEY",
				ArgsUsage: "KEY VALUE",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "entry lifetime; the cache default when zero",
					},
				},
				Action: a.set,
			},
			{
				Name:      "has",
				Usage:     "report whether KEY is present",
				ArgsUsage: "KEY",
				Action:    a.has,
			},
			{
				Name:      "delete",
				Usage:     "remove KEY",
				ArgsUsage: "KEY",
				Action:    a.delete,
			},
			{
				Name:   "flush",
				Usage:  "remove every entry of the cache",
				Action: a.flush,
			},
			{
				Name:   "drivers",
				Usage:  "list the backend types the resolver knows",
				Action: a.drivers,
			},
			{
				Name:   "caches",
				Usage:  "list configured caches",
				Action: a.caches,
			},
		},
	}
}

func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := zap.NewProductionConfig()
	if cmd.Bool("verbose") {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return ctx, fmt.Errorf("build logger: %w", err)
	}
	a.logger = logger

	options := cacheprovider.DefaultOptions()
	if path := cmd.String("config"); path != "" {
		if options, err = cacheprovider.LoadConfig(path); err != nil {
			return ctx, err
		}
	}
	a.provider = cacheprovider.New(options, cacheprovider.WithLogger(logger))
	logger.Debug("cachectl configured", zap.Strings("caches", a.provider.Caches().Names()))
	return ctx, nil
}

func (a *app) teardown(context.Context, *cli.Command) error {
	var err error
	if a.provider != nil {
		err = a.provider.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func (a *app) store(ctx context.Context, cmd *cli.Command) (cachecore.Store, error) {
	return a.provider.Caches().Get(ctx, cmd.String("cache"))
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.Args().Len() != n {
		return fmt.Errorf("usage: %s %s", cmd.Name, cmd.ArgsUsage)
	}
	return nil
}

func (a *app) get(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	store, err := a.store(ctx, cmd)
	if err != nil {
		return err
	}
	value, ok, err := store.Get(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	if !ok {
		return errMiss
	}
	_, err = fmt.Fprintln(a.out, string(value))
	return err
}

func (a *app) set(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 2); err != nil {
		return err
	}
	store, err := a.store(ctx, cmd)
	if err != nil {
		return err
	}
	return store.Set(ctx, cmd.Args().Get(0), []byte(cmd.Args().Get(1)), cmd.Duration("ttl"))
}

func (a *app) has(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	store, err := a.store(ctx, cmd)
	if err != nil {
		return err
	}
	ok, err := store.Has(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, ok)
	return err
}

func (a *app) delete(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	store, err := a.store(ctx, cmd)
	if err != nil {
		return err
	}
	return store.Delete(ctx, cmd.Args().First())
}

func (a *app) flush(ctx context.Context, cmd *cli.Command) error {
	store, err := a.store(ctx, cmd)
	if err != nil {
		return err
	}
	return store.Flush(ctx)
}

func (a *app) drivers(context.Context, *cli.Command) error {
	for _, name := range a.provider.Factory().Types() {
		if _, err := fmt.Fprintln(a.out, name); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) caches(context.Context, *cli.Command) error {
	options := a.provider.Options()
	for _, name := range options.Names() {
		driver := options[name].Driver
		if options[name].Factory != nil {
			driver = "factory"
		}
		if _, err := fmt.Fprintf(a.out, "%s\t%s\n", name, driver); err != nil {
			return err
		}
	}
	return nil
}
