// File: internal/listener/hook.go
package listener

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// HookSource adapts the gohook global OS input hook to the Source interface.
// gohook supports exactly one hook per process, which matches the design: the
// listener is started once and never restarted.
type HookSource struct {
	out       chan Event
	closeOnce sync.Once
}

var _ Source = (*HookSource)(nil)

// NewHookSource creates the OS hook adapter.
func NewHookSource() *HookSource {
	return &HookSource{out: make(chan Event, 64)}
}

// Events starts the OS hook and returns the translated event stream.
func (h *HookSource) Events() (<-chan Event, error) {
	raw := hook.Start()
	go func() {
		defer close(h.out)
		for ev := range raw {
			translated, ok := translate(ev)
			if !ok {
				continue
			}
			select {
			case h.out <- translated:
			default:
				// The consumer is stalled; dropping an input event is
				// preferable to blocking the hook thread.
			}
		}
	}()
	return h.out, nil
}

// Close stops the process-wide hook, which closes the raw channel and in turn
// the translated stream.
func (h *HookSource) Close() {
	h.closeOnce.Do(hook.End)
}

// translate maps a gohook event to the listener's event model. Mouse motion
// is deliberately ignored: movement without a click never triggers a capture.
func translate(ev hook.Event) (Event, bool) {
	switch ev.Kind {
	case hook.MouseDown:
		return Event{Kind: KindButtonPress}, true
	case hook.MouseUp:
		return Event{Kind: KindButtonRelease}, true
	case hook.MouseWheel:
		return Event{Kind: KindWheel}, true
	case hook.KeyDown, hook.KeyHold:
		return Event{
			Kind:   KindKeyPress,
			Escape: ev.Keycode == hook.Keycode["esc"],
		}, true
	default:
		return Event{}, false
	}
}
