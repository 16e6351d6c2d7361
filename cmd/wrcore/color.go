package main

import "github.com/fatih/color"

// getColor returns the requested color, or an uncolored object when noColor
// is set. The explicit Enable/DisableColor calls are needed because the
// library otherwise decides for itself by inspecting os.Stdout.
func getColor(attributes ...color.Attribute) *color.Color {
	if noColor {
		c := color.New()
		c.DisableColor()
		return c
	}
	c := color.New(attributes...)
	c.EnableColor()
	return c
}

func ok(format string, a ...interface{}) string {
	return getColor(color.FgGreen).Sprintf(format, a...)
}

func bad(format string, a ...interface{}) string {
	return getColor(color.FgRed).Sprintf(format, a...)
}

func info(format string, a ...interface{}) string {
	return getColor(color.FgCyan).Sprintf(format, a...)
}
