// Package ui provides styled console output for the bridge server.
// Structured logs go to slog; these helpers print the short human-readable
// lines an operator watches in a terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)

	// Special colors
	neonBlue = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET  = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintEngineInfo prints the configured backend after setup.
// Format: [ENGINE] Ollama registered as neurosymbolic
func PrintEngineInfo(displayName, capability, baseURL, model, maskedKey string) {
	infoBadge.Print("[ENGINE]")
	fmt.Print(" ")
	accentText.Print(displayName)
	infoText.Printf(" registered as %s\n", capability)

	mutedText.Print("         Base URL: ")
	fmt.Println(baseURL)
	mutedText.Print("         Model:    ")
	fmt.Println(model)
	mutedText.Print("         API key:  ")
	fmt.Println(maskedKey)
}

// PrintProbeResult prints the outcome of a connection test.
// A nil err prints the number of models the endpoint reported.
func PrintProbeResult(displayName string, models []string, err error) {
	if err != nil {
		errorBadge.Print(" PROBE FAILED ")
		fmt.Print(" ")
		errorText.Printf("%s: %v\n", displayName, err)
		return
	}

	successBadge.Print(" PROBE OK ")
	fmt.Print(" ")
	successText.Printf("%s reachable", displayName)
	mutedText.Printf(" (%d models", len(models))
	if len(models) > 0 {
		mutedText.Printf(": %s", summarizeModels(models, 3))
	}
	mutedText.Println(")")
}

// PrintInfo logs general bridge information.
// Format: [BRIDGE] message
func PrintInfo(msg string) {
	infoBadge.Print("[BRIDGE]")
	fmt.Print(" ")
	infoText.Println(msg)
}

// PrintCacheHit logs a cache hit with lightning styling.
// Format: ⚡ CACHE HIT | key:xxxx...xxxx | 0ms
func PrintCacheHit(cacheKey string, latency time.Duration) {
	neonBlue.Print("⚡ CACHE HIT ")
	fmt.Print("| key:")
	mutedText.Print(maskKeyShort(cacheKey))
	fmt.Print(" | ")
	successText.Printf("%dms\n", latency.Milliseconds())
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// PrintRequest logs a request with styled output.
// engineStatus is the result status of a query ("success", "api_error", ...), empty for other routes.
func PrintRequest(method, path string, status int, latency time.Duration, engineStatus string) {
	// Timestamp
	mutedText.Printf("%s ", time.Now().Format("15:04:05"))

	// Method badge
	printMethodBadge(method)
	fmt.Print(" ")

	// Path
	fmt.Printf("%-20s ", truncatePath(path, 20))

	// Status badge
	printStatusBadge(status)
	fmt.Print(" ")

	// Latency with color gradient
	printLatency(latency)

	// Engine outcome
	if engineStatus != "" {
		fmt.Print(" ")
		printEngineStatus(engineStatus)
	}

	fmt.Println()
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	switch method {
	case "POST":
		methodPOST.Printf(" %s ", method)
	case "GET":
		methodGET.Printf(" %s ", method)
	default:
		debugBadge.Printf(" %s ", method)
	}
}

// printStatusBadge prints the status code with appropriate color.
func printStatusBadge(status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Printf(" %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Printf(" %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Printf(" %d ", status)
	default:
		errorBadge.Printf(" %d ", status)
	}
}

// printEngineStatus colors the engine outcome. Queries always answer HTTP 200,
// so this is where failures become visible.
func printEngineStatus(status string) {
	switch status {
	case "success":
		successText.Print(status)
	case "empty_response", "no_content":
		warningText.Print(status)
	default:
		errorText.Print(status)
	}
}

// printLatency prints latency with color gradient.
// Model calls are slow, so the thresholds are in seconds.
func printLatency(latency time.Duration) {
	ms := latency.Milliseconds()
	latencyStr := fmt.Sprintf("%6dms", ms)

	switch {
	case latency < 2*time.Second:
		successText.Print(latencyStr)
	case latency < 15*time.Second:
		warningText.Print(latencyStr)
	default:
		errorText.Print(latencyStr)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// maskKeyShort returns a short masked version of a cache key.
// Format: xxxx...xxxx
func maskKeyShort(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// truncatePath truncates a path to maxLen characters.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return path[:maxLen-3] + "..."
}

// summarizeModels joins the first n model names and notes how many were left out.
func summarizeModels(models []string, n int) string {
	if len(models) <= n {
		return strings.Join(models, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(models[:n], ", "), len(models)-n)
}

// ══════════════════════════════════════════════════════════════════════════════
// STARTUP MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(host string, port int, cacheEnabled bool) {
	fmt.Println()
	infoBadge.Print("[BRIDGE]")
	fmt.Print(" Server starting on ")
	neonBlue.Printf("http://%s:%d\n", host, port)

	infoBadge.Print("[BRIDGE]")
	fmt.Print(" Result cache: ")
	if cacheEnabled {
		successText.Println("on")
	} else {
		warningText.Println("off")
	}

	fmt.Println()
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	mutedText.Println("  ┌──────────────────────────────────────────────────────┐")
	mutedText.Print("  │ ")
	methodPOST.Print(" POST ")
	fmt.Print(" /v1/query  ")
	mutedText.Print("  Prepare and forward a symbolic query ")
	mutedText.Println(" │")

	mutedText.Print("  │ ")
	methodGET.Print(" GET  ")
	fmt.Print(" /v1/engine ")
	mutedText.Print("  Describe the configured engine       ")
	mutedText.Println(" │")

	mutedText.Print("  │ ")
	methodGET.Print(" GET  ")
	fmt.Print(" /health    ")
	mutedText.Print("  Probe the engine endpoint            ")
	mutedText.Println(" │")

	mutedText.Println("  └──────────────────────────────────────────────────────┘")
	fmt.Println()
}

// PrintFatal prints a styled startup failure.
func PrintFatal(msg string, err error) {
	errorBadge.Print(" FATAL ")
	fmt.Print(" ")
	errorText.Printf("%s: %v\n", msg, err)
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Println()
	warningBadge.Print("[SHUTDOWN]")
	warningText.Println(" Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Print(" OK ")
	fmt.Print(" ")
	successText.Println("Server stopped. Goodbye!")
}
