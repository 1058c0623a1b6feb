// Package ui renders a download run as plain terminal output.
//
// The Renderer consumes the engine's event stream and prints one line
// per canvas outcome plus a closing summary; on a terminal it keeps an
// in-place progress line for the transfer in flight. Formatting
// helpers (bytes, speed, duration, ETA) and ANSI color functions are
// shared with the richer bubbletea interface in ui/tui. The Notifier
// sends an optional desktop notification when a run finishes.
package ui
