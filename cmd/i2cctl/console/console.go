// Package console formats the output of the i2cctl commands.
package console

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
)

const (
	PictoThermometer = "🌡"
	PictoHumidity    = "💧"
	PictoLight       = "💡"
	PictoPin         = "📌"
)

// Exit builds the error a command returns to end the run with code.
func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
