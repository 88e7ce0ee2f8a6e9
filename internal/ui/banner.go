package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Version is printed in the banner.
const Version = "v0.3.0"

// PrintBanner displays the startup banner.
func PrintBanner() {
	fmt.Println()

	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	cyan.Println("╔══════════════════════════════════════════════════════════════╗")

	art := [][2]string{
		{"███████╗██╗   ██╗███╗   ███╗", " █████╗ ██╗"},
		{"██╔════╝╚██╗ ██╔╝████╗ ████║", "██╔══██╗██║"},
		{"███████╗ ╚████╔╝ ██╔████╔██║", "███████║██║"},
		{"╚════██║  ╚██╔╝  ██║╚██╔╝██║", "██╔══██║██║"},
		{"███████║   ██║   ██║ ╚═╝ ██║", "██║  ██║██║"},
		{"╚══════╝   ╚═╝   ╚═╝     ╚═╝", "╚═╝  ╚═╝╚═╝"},
	}
	for _, row := range art {
		cyan.Print("║  ")
		hiCyan.Print(row[0])
		magenta.Print(row[1])
		dim.Print("                     ")
		cyan.Println("║")
	}

	cyan.Println("╠══════════════════════════════════════════════════════════════╣")

	cyan.Print("║  ")
	yellow.Print("NEUROSYMBOLIC BRIDGE")
	dim.Print("  │  ")
	magenta.Print("OpenAI-compatible · Ollama")
	dim.Print("  │  ")
	white.Print(Version)
	cyan.Println("  ║")

	cyan.Println("╚══════════════════════════════════════════════════════════════╝")

	fmt.Println()
}
