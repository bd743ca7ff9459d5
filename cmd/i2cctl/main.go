package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/command"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/pkg/config"
)

var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	err := newApp().Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			console.Error(err.Error())
			return exerr.ExitCode()
		}
		console.Error(err.Error())
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "i2cctl"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", config.Version, date, commit)
	app.Usage = "i2c master bench"
	// run maps errors to exit codes
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and print the phase trace of every transfer",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "bench configuration file, the built-in bench when empty",
			EnvVars: []string{"I2CCTL_CONFIG"},
		},
		&cli.UintFlag{
			Name:    "bus",
			Aliases: []string{"b"},
			Usage:   "controller id",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		console.Trace = ctx.Bool("verbose")
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&scanCmd,
		&readCmd,
		&writeCmd,
		&regReadCmd,
		&tempReadCmd,
		&lightCmd,
		&gpioCmd,
		&motionCmd,
		&airCmd,
		command.PotentiometerCmd,
		command.MemoryCmd,
		&busesCmd,
		&configCmd,
		newShellCmd(),
	}
	return app
}
