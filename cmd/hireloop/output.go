package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// verdictLabel colors a verdict the way a shortlist is scanned: green for
// strong_hire, yellow for potential, red for anything else.
func verdictLabel(verdict string) string {
	switch verdict {
	case "strong_hire":
		return colorize(colorGreen, verdict)
	case "potential":
		return colorize(colorYellow, verdict)
	default:
		return colorize(colorRed, verdict)
	}
}

// scoreCell formats an optional score for ranking tables; an absent score
// prints as a dash, never as 0.
func scoreCell(score *float64) string {
	if score == nil {
		return "    -"
	}
	return fmt.Sprintf("%.3f", *score)
}

// shortID abbreviates entity UUIDs for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}
