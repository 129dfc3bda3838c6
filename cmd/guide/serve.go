package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/cortexguide/internal/config"
	"github.com/normanking/cortexguide/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the guide and serve the HTTP and pose stream API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			return serve(cmd.Context(), rt, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func serve(parent context.Context, rt *runtime, addr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.body.StartPresence(); err != nil {
		return err
	}

	srv := server.New(rt.agent,
		server.WithBus(rt.bus),
		server.WithLogHistory(rt.logs),
		server.WithViewpoint(rt.viewpoint),
		server.WithStreamRate(rt.cfg.Server.StreamRate),
		server.WithLogger(rt.logs.Component("server")),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tick(ctx, rt.body, rt.cfg.Server.TickRate)
	})
	g.Go(func() error {
		return srv.Run(ctx, addr)
	})

	watcher, err := config.NewWatcher(rt.configPath, func(p config.PresenceConfig) {
		rt.body.SetPresenceConfig(presencePatch(p))
	}, rt.logs.Component("config"))
	if err != nil {
		rt.logs.Warn("main", "config hot reload disabled", map[string]interface{}{"error": err.Error()})
	} else {
		g.Go(func() error { return watcher.Run(ctx) })
	}

	rt.logs.Info("main", "guide serving", map[string]interface{}{
		"addr":  addr,
		"brain": rt.agent.Brain() != nil,
	})
	return g.Wait()
}
