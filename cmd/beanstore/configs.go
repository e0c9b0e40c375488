package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/signadot/beanstore/config"
	"github.com/signadot/beanstore/debug"
)

type MainConfig struct {
	ConfigFile string `cli:"name=config desc='configuration file (yaml)'"`
	Color      string `cli:"name=color desc='color output: auto, always or never'"`
	V          bool   `cli:"name=v desc='log at debug level'"`
	Debug      bool   `cli:"name=debug desc='enable debug traces'"`

	Main *cli.Command

	cfg    *config.Config
	logger *slog.Logger
}

// load reads the configuration file and applies the command line on top.
func (cfg *MainConfig) load() error {
	c := config.Default()
	if cfg.ConfigFile != "" {
		var err error
		c, err = config.Load(cfg.ConfigFile)
		if err != nil {
			return err
		}
	}
	if cfg.Color != "" {
		c.Color = cfg.Color
	}
	if cfg.V {
		c.Log.Level = "debug"
	}
	if cfg.Debug {
		c.Debug.Trace = true
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	if c.Debug.Trace {
		debug.Enable()
	}
	switch c.Color {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	}
	level, _ := c.Level()
	cfg.logger = newLogger(os.Stderr, level)
	cfg.cfg = c
	return nil
}

type colors struct {
	ok     func(string, ...any) string
	fail   func(string, ...any) string
	id     func(string, ...any) string
	dim    func(string, ...any) string
	// pretty selects colored conflict diffs.
	pretty bool
}

var plain = &colors{ok: fmt.Sprintf, fail: fmt.Sprintf, id: fmt.Sprintf, dim: fmt.Sprintf}

func (cfg *MainConfig) colors(w io.Writer) *colors {
	if !cfg.useColor(w) {
		return plain
	}
	return &colors{
		ok:     color.GreenString,
		fail:   color.RedString,
		id:     color.RGB(196, 96, 16).SprintfFunc(),
		dim:    color.New(color.Faint).SprintfFunc(),
		pretty: true,
	}
}

func (cfg *MainConfig) useColor(w io.Writer) bool {
	switch cfg.cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

type RunConfig struct {
	*MainConfig
	FailFast bool `cli:"name=failfast desc='stop each script at its first failed step'"`
	Values   bool `cli:"name=values desc='print step values'"`

	Run *cli.Command
}

type ServeConfig struct {
	*MainConfig
	Addr    string `cli:"name=addr desc='TCP listen address (default stdio)'"`
	Metrics string `cli:"name=metrics desc='serve prometheus metrics on this address'"`
	Load    string `cli:"name=load desc='script to run on the tree before serving'"`

	Serve *cli.Command
}

type QueryConfig struct {
	*MainConfig
	Expr   string `cli:"name=e desc='query expression'"`
	Branch string `cli:"name=branch desc='branch to query (default the root)'"`

	Query *cli.Command
}

type ExportConfig struct {
	*MainConfig
	Branch string `cli:"name=branch desc='branch to export (default the root)'"`
	JSON   bool   `cli:"name=json desc='output json instead of yaml'"`

	Export *cli.Command
}

type CheckConfig struct {
	*MainConfig

	Check *cli.Command
}
