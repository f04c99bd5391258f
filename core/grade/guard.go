package grade

import "time"

// Window states. Unlocked means no prior edit exists; Editable means a prior
// edit exists and the window is still open; Locked means the window has
// expired and only an administrator reset makes the grades mutable again.
type WindowState string

const (
	WindowUnlocked WindowState = "unlocked"
	WindowEditable WindowState = "editable"
	WindowLocked   WindowState = "locked"
)

// Window is advisory metadata for the UI and a hard gate for the revision
// service: no mutation is persisted while State is WindowLocked.
type Window struct {
	State          WindowState `json:"state"`
	HoursRemaining int         `json:"hours_remaining,omitempty"`
}

func (w Window) Open() bool { return w.State != WindowLocked }

// CheckWindow is pure: elapsed < limit keeps the window open, reporting whole
// hours remaining (floor); elapsed >= limit locks it. A nil or zero lastEdit
// means no prior edit, always editable.
func CheckWindow(lastEdit *time.Time, now time.Time, limit time.Duration) Window {
	if lastEdit == nil || lastEdit.IsZero() {
		return Window{State: WindowUnlocked}
	}
	elapsed := now.Sub(*lastEdit)
	if elapsed >= limit {
		return Window{State: WindowLocked}
	}
	return Window{State: WindowEditable, HoursRemaining: int((limit - elapsed).Hours())}
}
