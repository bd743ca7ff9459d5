package main

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/bench"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
)

// newShellCmd builds the shell command; its lines run in apps made by newApp.
func newShellCmd() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "run commands against one bench so that device state carries over",
		Action: func(c *cli.Context) error {
			if _, err := bench.From(c); err != nil {
				return console.Exit(1, "could not build bench: %v", err)
			}
			rl, err := readline.New("i2cctl> ")
			if err != nil {
				return err
			}
			defer rl.Close()
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				args := strings.Fields(line)
				if len(args) == 0 {
					continue
				}
				switch args[0] {
				case "exit", "quit":
					return nil
				case "shell":
					console.Warn("already in a shell")
					continue
				}
				if err = runLine(c, args); err != nil {
					console.Error(err.Error())
				}
			}
		},
	}
}

// runLine runs one shell line in a fresh app that shares the bench of the
// parent.
func runLine(c *cli.Context, args []string) error {
	app := newApp()
	app.Metadata = c.App.Metadata
	global := []string{app.Name}
	if c.IsSet("config") {
		global = append(global, "--config", c.String("config"))
	}
	if c.Bool("verbose") {
		global = append(global, "--verbose")
	}
	return app.Run(append(global, args...))
}
