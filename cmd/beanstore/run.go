package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/signadot/beanstore/branch"
	"github.com/signadot/beanstore/libdiff"
	"github.com/signadot/beanstore/script"
)

func run(cfg *RunConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Run.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: no scripts given", cli.ErrUsage)
	}
	c := cfg.colors(cc.Out)
	failed := 0
	for _, path := range args {
		opts := []script.RunOption{script.WithLogger(cfg.logger)}
		if cfg.FailFast {
			opts = append(opts, script.FailFast())
		}
		rep, err := runScript(path, opts...)
		if err != nil {
			return err
		}
		writeReport(cc.Out, c, path, rep, cfg.Values)
		if rep.Failed != 0 {
			failed++
		}
	}
	if failed != 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}

func runScript(path string, opts ...script.RunOption) (*script.Report, error) {
	s, err := script.Open(path)
	if err != nil {
		return nil, err
	}
	rep, err := script.Run(context.Background(), s, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rep, nil
}

func writeReport(w io.Writer, c *colors, path string, rep *script.Report, values bool) {
	for _, res := range rep.Results {
		switch {
		case res.Failed:
			fmt.Fprintf(w, "%s %3d %s: %s\n", c.fail("FAIL"), res.Index, res.Step, res.Reason)
		case !values:
			fmt.Fprintf(w, "%s %3d %s\n", c.ok("ok  "), res.Index, res.Step)
		default:
			v := ""
			switch {
			case res.Error != "":
				v = res.Error
			case res.Value != nil:
				v = libdiff.Format(res.Value)
			}
			fmt.Fprintf(w, "%s %3d %s %s\n", c.ok("ok  "), res.Index, res.Step, c.dim("%s", v))
		}
		writeConflicts(w, c, res.Conflicts)
	}
	status := c.ok("ok")
	if rep.Failed != 0 {
		status = c.fail("%d failed", rep.Failed)
	}
	fmt.Fprintf(w, "%s: %d steps, %s\n", c.id("%s", path), len(rep.Results), status)
}

func writeConflicts(w io.Writer, c *colors, conflicts []branch.Conflict[string]) {
	for _, cf := range conflicts {
		fmt.Fprintf(w, "         %s\n", cf)
		d := cf.Diff()
		if c.pretty {
			d = cf.PrettyDiff()
		}
		for _, line := range strings.Split(strings.TrimSuffix(d, "\n"), "\n") {
			fmt.Fprintf(w, "           %s\n", line)
		}
	}
}
