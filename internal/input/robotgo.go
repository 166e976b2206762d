// File: internal/input/robotgo.go
package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// RobotDriver injects input through robotgo. It is stateless; robotgo talks
// to the platform display server directly.
type RobotDriver struct{}

var _ Driver = (*RobotDriver)(nil)

// NewRobotDriver returns the production input driver.
func NewRobotDriver() *RobotDriver { return &RobotDriver{} }

func (d *RobotDriver) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (d *RobotDriver) Click(btn Button) error {
	if err := btn.Validate(); err != nil {
		return err
	}
	robotgo.Click(string(btn))
	return nil
}

func (d *RobotDriver) ButtonDown(btn Button) error {
	return d.toggle(btn, "down")
}

func (d *RobotDriver) ButtonUp(btn Button) error {
	return d.toggle(btn, "up")
}

func (d *RobotDriver) toggle(btn Button, dir string) error {
	if err := btn.Validate(); err != nil {
		return err
	}
	if err := robotgo.Toggle(string(btn), dir); err != nil {
		return fmt.Errorf("input: toggle %s %s: %w", btn, dir, err)
	}
	return nil
}

func (d *RobotDriver) KeyTap(key string) error {
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("input: key tap %q: %w", key, err)
	}
	return nil
}

func (d *RobotDriver) KeyDown(key string) error {
	if err := robotgo.KeyToggle(key, "down"); err != nil {
		return fmt.Errorf("input: key down %q: %w", key, err)
	}
	return nil
}

func (d *RobotDriver) KeyUp(key string) error {
	if err := robotgo.KeyToggle(key, "up"); err != nil {
		return fmt.Errorf("input: key up %q: %w", key, err)
	}
	return nil
}

func (d *RobotDriver) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (d *RobotDriver) Scroll(amount int) error {
	if amount == 0 {
		return nil
	}
	dir := "down"
	if amount < 0 {
		dir = "up"
		amount = -amount
	}
	robotgo.ScrollDir(amount, dir)
	return nil
}

func (d *RobotDriver) Location() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}
