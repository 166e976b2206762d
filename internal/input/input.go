// File: internal/input/input.go
//
// Package input abstracts the OS-level pointer and keyboard injection
// primitive. The control core only ever talks to the Driver interface; the
// robotgo adapter is the one production implementation.
package input

import "fmt"

// Button identifies a mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonCenter Button = "center"
)

// Driver is the primitive input capability: absolute pointer moves, button
// and key state changes, literal text entry, vertical scrolling and pointer
// location queries. Implementations carry no policy; sequencing lives in the
// action executor.
type Driver interface {
	MoveTo(x, y int) error
	Click(btn Button) error
	ButtonDown(btn Button) error
	ButtonUp(btn Button) error

	// KeyTap presses and releases a named key (robotgo key names).
	KeyTap(key string) error
	KeyDown(key string) error
	KeyUp(key string) error

	// TypeText types the literal string verbatim.
	TypeText(text string) error

	// Scroll scrolls vertically; positive amounts scroll down.
	Scroll(amount int) error

	// Location returns the current pointer position.
	Location() (x, y int, err error)
}

// Validate rejects buttons outside the closed set before they reach the OS
// layer.
func (b Button) Validate() error {
	switch b {
	case ButtonLeft, ButtonRight, ButtonCenter:
		return nil
	default:
		return fmt.Errorf("input: unknown mouse button %q", string(b))
	}
}
