package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/tendant/site-content/pkg/sitecontent"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

func printError(w io.Writer, err error) {
	red.Fprintf(w, "error: ")
	fmt.Fprintln(w, err)
}

func printSuccess(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ "+format+"\n", a...)
}

func printWarning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! "+format+"\n", a...)
}

// tierColor distinguishes edited documents from fallbacks at a glance.
func tierColor(t sitecontent.SourceTier) *color.Color {
	switch t {
	case sitecontent.SourcePrimaryStore:
		return green
	case sitecontent.SourceLegacyStore:
		return yellow
	case sitecontent.SourceRemoteDefault:
		return cyan
	default:
		return faint
	}
}
