package format

import (
	"hash/fnv"
	"os"

	"golang.org/x/term"
)

// ANSI styles. Cleared at init when stdout is not a terminal or NO_COLOR is
// set, so rendering code can concatenate them unconditionally.
var (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Cyan    = "\033[36m"
	Magenta = "\033[35m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Green   = "\033[32m"
)

// toolPalette is the rotation agent tools are colored from.
var toolPalette = []*string{&Cyan, &Magenta, &Yellow, &Blue, &Green}

// ToolColor picks a stable color for a tool name so the same agent renders
// the same way across files and commits.
func ToolColor(tool string) string {
	h := fnv.New32a()
	h.Write([]byte(tool))
	return *toolPalette[h.Sum32()%uint32(len(toolPalette))]
}

func init() {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		for _, style := range []*string{&Reset, &Bold, &Dim, &Cyan, &Magenta, &Yellow, &Blue, &Green} {
			*style = ""
		}
	}
}

// TermWidth returns the terminal width, defaulting to 80 columns.
func TermWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
