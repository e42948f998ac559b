// Package tui implements the jsonview terminal user interface.
//
// Built with Charmbracelet's BubbleTea, Lipgloss, and Bubbles libraries.
//
// Component architecture:
//
//	model.go    - root model, message routing, Init/Update
//	keys.go     - key bindings and help
//	theme.go    - centralized color + style definitions
//	header.go   - top bar and footer status line
//	document.go - tree table panel and removal modal
//	detail.go   - selected record fields and source info
//	library.go  - document selector (initial screen)
//	helpers.go  - row navigation and clamping
package tui
