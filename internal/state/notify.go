package state

// Event names a change the UI may want to react to.
type Event int

const (
	SettingsChanged Event = iota
	PlayerChanged
	DownloadChanged
)

func (e Event) String() string {
	switch e {
	case SettingsChanged:
		return "settings"
	case PlayerChanged:
		return "player"
	case DownloadChanged:
		return "download"
	default:
		return "unknown"
	}
}

// Notifier receives events after a successful mutating operation. Notify is
// called with the App lock held and must not call back into the App.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(e Event) { f(e) }
