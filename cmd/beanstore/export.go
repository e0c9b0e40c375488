package main

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"
	"github.com/signadot/beanstore/patch"
	"github.com/signadot/beanstore/script"
)

// exported is the printed form of a change, with the patch decoded so
// that yaml output shows its operations.
type exported struct {
	Bean    string `json:"bean"`
	State   string `json:"state"`
	Replace bool   `json:"replace,omitempty"`
	Patch   any    `json:"patch,omitempty"`
}

func export(cfg *ExportConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Export.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: need one script", cli.ErrUsage)
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
	changes, err := patch.Export(b)
	if err != nil {
		return err
	}
	out := make([]exported, 0, len(changes))
	for _, c := range changes {
		e := exported{Bean: c.Bean, State: c.State.String(), Replace: c.Replace}
		if len(c.Patch) != 0 {
			if err := json.Unmarshal(c.Patch, &e.Patch); err != nil {
				return err
			}
		}
		out = append(out, e)
	}
	var d []byte
	if cfg.JSON {
		d, err = json.MarshalIndent(out, "", "  ")
		d = append(d, '\n')
	} else {
		d, err = yaml.Marshal(out)
	}
	if err != nil {
		return err
	}
	_, err = cc.Out.Write(d)
	return err
}
