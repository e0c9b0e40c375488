package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/beanstore/config"
)

func check(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: no config files given", cli.ErrUsage)
	}
	c := cfg.colors(cc.Out)
	bad := 0
	for _, path := range args {
		if _, err := config.Load(path); err != nil {
			fmt.Fprintf(cc.Out, "%s %s\n", c.fail("FAIL"), err)
			bad++
			continue
		}
		fmt.Fprintf(cc.Out, "%s %s\n", c.ok("ok  "), c.id("%s", path))
	}
	if bad != 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}
