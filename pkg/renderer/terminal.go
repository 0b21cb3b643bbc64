package renderer

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// UseColor decides whether output to w is styled. "always" and "never" are
// absolute; "auto" styles terminals unless NO_COLOR is set.
func UseColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if !IsTerminal(w) {
		return false
	}
	return !termenv.NewOutput(w).EnvNoColor()
}

// colorProfile returns the profile used to render styles for w.
func colorProfile(w io.Writer, styled bool) termenv.Profile {
	if !styled {
		return termenv.Ascii
	}
	profile := termenv.NewOutput(w).EnvColorProfile()
	if profile == termenv.Ascii {
		// Forced color on a writer termenv cannot inspect.
		return termenv.ANSI256
	}
	return profile
}
