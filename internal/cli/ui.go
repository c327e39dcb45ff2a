package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

var fgColors = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

var bgColors = map[string]color.Attribute{
	"black":   color.BgBlack,
	"red":     color.BgRed,
	"green":   color.BgGreen,
	"yellow":  color.BgYellow,
	"blue":    color.BgBlue,
	"magenta": color.BgMagenta,
	"cyan":    color.BgCyan,
	"white":   color.BgWhite,
}

// agentColor builds a color from an agent's self-chosen style. Unknown or
// empty names fall back to plain output.
func agentColor(fg, bg string) *color.Color {
	var attrs []color.Attribute
	if a, ok := fgColors[strings.ToLower(fg)]; ok {
		attrs = append(attrs, a)
	}
	if a, ok := bgColors[strings.ToLower(bg)]; ok {
		attrs = append(attrs, a)
	}
	if len(attrs) == 0 {
		return color.New()
	}
	return color.New(attrs...)
}
