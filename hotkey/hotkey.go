package hotkey

type Binding int

const (
	Screenshot Binding = iota // Ctrl+Shift+S
	Overlay                   // Ctrl+Shift+G
	Voice                     // Ctrl+Shift+Space
)

var Bindings = []Binding{Screenshot, Overlay, Voice}

func (b Binding) String() string {
	switch b {
	case Screenshot:
		return "Ctrl+Shift+S"
	case Overlay:
		return "Ctrl+Shift+G"
	case Voice:
		return "Ctrl+Shift+Space"
	}
	return "unknown"
}

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
