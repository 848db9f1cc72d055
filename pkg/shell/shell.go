// Package shell is the terminal interface of the OS core.
package shell

import (
	"fmt"
	"os"

	"src.oopis.dev/pkg/config"
	"src.oopis.dev/pkg/logutil"
	"src.oopis.dev/pkg/prog"
)

var logger = logutil.GetLogger("[shell] ")

// Program is the shell subprogram.
type Program struct {
	codeInArg  bool
	dbPath     string
	configPath string
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.codeInArg, "c", false, "Take the first argument as code to execute")
	fs.StringVar(&p.dbPath, "db", "", "Path to the state database")
	fs.StringVar(&p.configPath, "config", "", "Path to the configuration file")
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	configPath := p.configPath
	if configPath == "" {
		if path, err := ConfigPath(); err == nil {
			configPath = path
		} else {
			fmt.Fprintln(fds[2], "Warning:", err)
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		if err := logutil.SetOutputFile(cfg.LogFile); err != nil {
			fmt.Fprintln(fds[2], "Warning:", err)
		}
	}

	dbPath := p.dbPath
	if dbPath == "" {
		dbPath, err = DBPath()
		if err != nil {
			return err
		}
	}

	rt, err := NewRuntime(dbPath, cfg, fds)
	if err != nil {
		return err
	}
	defer rt.Close()

	if len(args) > 0 {
		return Script(rt, args, p.codeInArg)
	}
	return Interact(rt, fds)
}
