package websocket

import (
	"encoding/hex"
	"fmt"

	"github.com/fatih/color"
)

// --------------------------------------------------------------------------------
// Print Helpers

// PrintConnectMessage prints a connection banner with colorized formatting.
func PrintConnectMessage() {
	_, _ = color.New(color.FgHiCyan, color.Bold).Println("🔗 Connected")
}

// PrintTextMessage prints a text frame with colorized formatting.
func PrintTextMessage(data []byte, note string) {
	_, _ = color.New(color.FgGreen, color.Bold).Print("📝 Text: ")

	fmt.Println(string(data))

	printNote(note)
}

// PrintBinaryMessage prints a binary frame as a hex dump with colorized
// formatting.
func PrintBinaryMessage(data []byte, note string) {
	_, _ = color.New(color.FgHiMagenta, color.Bold).Printf("📦 Binary (%d bytes):\n", len(data))

	fmt.Print(hex.Dump(data))

	printNote(note)
}

// PrintErrorMessage prints an error with colorized formatting.
func PrintErrorMessage(err error) {
	_, _ = color.New(color.FgRed, color.Bold).Print("⛔ Error: ")

	fmt.Println(err)
}

// PrintCloseMessage prints a connection closure with colorized formatting.
func PrintCloseMessage(code int, reason string) {
	_, _ = color.New(color.FgHiYellow, color.Bold).Printf("🔌 Closed: %d", code)

	if reason != "" {
		fmt.Printf(" - %s", reason)
	}

	fmt.Println()
}

// printNote prints an optional annotation beneath a frame dump.
func printNote(note string) {
	if note == "" {
		return
	}

	fmt.Printf("   %s\n", color.HiBlackString(note))
}
