package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

func printOK(format string, a ...any) {
	okColor.Println("✓ " + fmt.Sprintf(format, a...))
}

func printWarn(format string, a ...any) {
	warnColor.Fprintln(os.Stderr, "⚠ Warning: "+fmt.Sprintf(format, a...))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
