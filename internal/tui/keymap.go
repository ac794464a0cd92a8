package tui

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeyEsc       = "esc"
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
	KeySpace     = " "
	KeyUp        = "up"
	KeyDown      = "down"
	KeyReport    = "r"
)
