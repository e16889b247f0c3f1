package tui

// Key bindings handled in handleKey. Every other key goes to the focused
// editor, which owns cursor movement and insertion.
const (
	keyQuit     = "ctrl+c"
	keyEsc      = "esc"
	keyListen   = "ctrl+r"
	keyGenerate = "ctrl+g"
	keyValidate = "ctrl+k"
	keyExport   = "ctrl+e"
	keyStartNew = "ctrl+n"
)
