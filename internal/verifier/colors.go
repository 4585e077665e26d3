package verifier

import (
	"os"
)

const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
)

// colorEnabled is false when NO_COLOR is set
var colorEnabled = os.Getenv("NO_COLOR") == ""

// Colorize wraps text in the given ANSI color codes
func Colorize(text, color string) string {
	if !colorEnabled {
		return text
	}
	return color + text + ColorReset
}
