package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/beanstore/query"
	"github.com/signadot/beanstore/script"
)

func queryMain(cfg *QueryConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Query.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Expr == "" || len(args) != 1 {
		return fmt.Errorf("%w: need -e and one script", cli.ErrUsage)
	}
	q, err := query.Compile(cfg.Expr)
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	rep, err := runScript(args[0], script.WithLogger(cfg.logger))
	if err != nil {
		return err
	}
	if err := rep.Err(); err != nil {
		return err
	}
	b := rep.Root
	if cfg.Branch != "" {
		if b = rep.Branch(cfg.Branch); b == nil {
			return fmt.Errorf("no branch %q in %s", cfg.Branch, args[0])
		}
	}
	ids, err := query.Select(b, q)
	if err != nil {
		return err
	}
	c := cfg.colors(cc.Out)
	for _, id := range ids {
		fmt.Fprintln(cc.Out, c.id("%s", id))
	}
	return nil
}
