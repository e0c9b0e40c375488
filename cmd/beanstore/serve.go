package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scott-cotton/cli"
	"github.com/signadot/beanstore/branch"
	"github.com/signadot/beanstore/rpc"
	"github.com/signadot/beanstore/script"
)

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return nil
}

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}
	c := cfg.cfg
	if cfg.Addr != "" {
		c.RPC.Addr = cfg.Addr
	}
	if cfg.Metrics != "" {
		c.Metrics.Addr = cfg.Metrics
	}
	log := cfg.logger

	if c.Debug.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Warn("gops agent failed", "error", err)
		}
		defer agent.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := branch.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(reg); err != nil {
		return err
	}
	root := branch.New[string](c.Root, branch.WithLogger(log), branch.WithMetrics(m))

	if cfg.Load != "" {
		s, err := script.Open(cfg.Load)
		if err != nil {
			return err
		}
		rep, err := script.RunOn(ctx, root, s, script.WithLogger(log))
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.Load, err)
		}
		if err := rep.Err(); err != nil {
			return fmt.Errorf("%s: %w", cfg.Load, err)
		}
		log.Info("loaded script", "path", cfg.Load, "steps", len(rep.Results))
	}

	if c.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		hs := &http.Server{Addr: c.Metrics.Addr, Handler: mux}
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "error", err)
			}
		}()
		defer hs.Close()
		log.Info("serving metrics", "addr", c.Metrics.Addr)
	}

	srv := rpc.NewServer(root, log)
	if c.RPC.Addr == "" {
		in := cc.In
		if in == nil {
			in = os.Stdin
		}
		return srv.Serve(ctx, stdio{Reader: in, Writer: cc.Out})
	}
	l, err := rpc.Listen(c.RPC.Addr, srv)
	if err != nil {
		return err
	}
	defer l.Close()
	return l.Serve(ctx)
}
