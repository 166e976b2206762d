// File: internal/action/exec.go
package action

import (
	"fmt"

	"github.com/xkilldash9x/deskpilot-cli/internal/input"
)

// Execute performs one parsed command against the input driver. It returns
// done=true with the completion message when the command ends the task.
func Execute(cmd Command, drv input.Driver) (done bool, message string, err error) {
	switch cmd.Kind {
	case KindClick:
		if err := drv.MoveTo(cmd.X, cmd.Y); err != nil {
			return false, "", err
		}
		return false, "", drv.Click(input.ButtonLeft)

	case KindClickDown:
		if err := drv.MoveTo(cmd.X, cmd.Y); err != nil {
			return false, "", err
		}
		return false, "", drv.ButtonDown(input.ButtonLeft)

	case KindClickUp:
		return false, "", drv.ButtonUp(input.ButtonLeft)

	case KindDrag:
		// The button state is whatever click_down left it at; drag only moves.
		return false, "", drv.MoveTo(cmd.X, cmd.Y)

	case KindTap:
		key, literal, err := resolveKey(cmd.Key)
		if err != nil {
			return false, "", err
		}
		if literal {
			return false, "", drv.TypeText(key)
		}
		return false, "", drv.KeyTap(key)

	case KindTapDown:
		key, literal, err := resolveKey(cmd.Key)
		if err != nil {
			return false, "", err
		}
		if literal {
			return false, "", fmt.Errorf("action: tap_down is not supported for character %q, use a named key such as 'Shift'", cmd.Key)
		}
		return false, "", drv.KeyDown(key)

	case KindTapUp:
		key, literal, err := resolveKey(cmd.Key)
		if err != nil {
			return false, "", err
		}
		if literal {
			return false, "", fmt.Errorf("action: tap_up is not supported for character %q, use a named key such as 'Shift'", cmd.Key)
		}
		return false, "", drv.KeyUp(key)

	case KindScroll:
		return false, "", drv.Scroll(cmd.Amount)

	case KindType:
		return false, "", drv.TypeText(cmd.Text)

	case KindDone:
		return true, cmd.Text, nil

	default:
		return false, "", fmt.Errorf("action: unhandled command kind %v", cmd.Kind)
	}
}
