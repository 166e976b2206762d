// File: internal/planner/prompt.go
package planner

import (
	"fmt"
	"strings"
)

// SystemPrompt fixes the planner's role and output contract for every turn.
const SystemPrompt = `You are a desktop automation planner. Each turn you receive the task, the prior transcript, the current screen state as CSV element data, and possibly relevant historical actions. You respond with exactly one reasoning block followed by exactly one action command and nothing else.`

// actionContract is the command vocabulary shown to the model verbatim each
// turn. Keep the wording stable; the model's output format depends on it.
const actionContract = `Valid action commands and their required value formats:
* ` + "`click:(x,y)`" + ` - Click instantly at absolute pixel coordinates (x, y). Derive coordinates from the CSV data (e.g., center of a bbox: ((col_min+col_max)/2, (row_min+row_max)/2)).
* ` + "`click_down:(x,y)`" + ` - Press and hold the left mouse button at absolute pixel coordinates (x, y).
* ` + "`click_up:nil`" + ` - Release the held left mouse button. The value must be exactly ` + "`nil`" + `.
* ` + "`drag:(x,y)`" + ` - Move the mouse to absolute pixel coordinates (x, y) WHILE the button is held down (use after ` + "`click_down`" + `).
* ` + "`tap:'key'`" + ` - Press and release a keyboard key. The key name or character MUST be enclosed in single quotes. Common keys: 'a', 'b', '1', 'Enter', 'Shift', 'Control', 'Alt', 'Escape', 'Backspace', 'Tab', 'Space', 'F5', etc.
* ` + "`tap_down:'key'`" + ` - Press and HOLD a keyboard key (typically for modifiers like 'Shift', 'Control', 'Alt'). Use single quotes.
* ` + "`tap_up:'key'`" + ` - Release a held keyboard key. Use single quotes.
* ` + "`scroll:amount`" + ` - Scroll vertically by the specified integer amount. Positive values scroll down, negative values scroll up. Example: ` + "`scroll:10`, `scroll:-5`" + `.
* ` + "`type:'text to type'`" + ` - Type the provided sequence of characters exactly. The text MUST be enclosed in single quotes.
* ` + "`done:'completion message'`" + ` - Stop the execution loop and report the outcome. The message MUST be enclosed in single quotes.

Examples of the required output format:
<think>User wants to log in. I see a button component (id: 5, class: Compo, row_min: 250, col_min: 100, row_max: 280, col_max: 150, content: 'Login'). I will click its approximate center.</think>click:(125,265)
<think>The input field (id: 3) seems to be for the username based on nearby text. I will type 'testuser'.</think>type:'testuser'
<think>The required information is below the current view. I need to scroll down the page significantly.</think>scroll:15
<think>I see the text 'Welcome, testuser!' (id: 12, class: Text). The login was successful, fulfilling the command.</think>done:'Login successful.'`

// BuildUserPrompt assembles one planning turn: the instruction, the running
// transcript of prior model responses, the current screen CSV and whatever
// historical context matched the instruction.
func BuildUserPrompt(instruction, transcript, screenCSV, historical string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The command given to you was: %s\n\n", instruction)
	fmt.Fprintf(&b, "Previous actions: %s\n\n", transcript)

	b.WriteString("Below is the Current Screen State (as CSV data with columns including id, class, column_min, row_min, column_max, row_max, width, height, content) and may include Relevant Historical Actions:\n\n")
	b.WriteString("--- Current Screen State ---\n")
	b.WriteString(screenCSV)
	b.WriteString("\n\n")

	if historical != "" {
		b.WriteString("--- Relevant Historical Actions ---\n")
		b.WriteString(historical)
	} else {
		b.WriteString("--- No Relevant Historical Actions Found ---\n")
	}
	b.WriteString("\n\n")

	b.WriteString("Based on this information, perform the following steps:\n")
	b.WriteString("1. First, provide a brief explanation (1-3 sentences) of your reasoning and the intended action, enclosed within <think></think> tags. Refer to element details (like id, class, content, or coordinates) from the CSV context in your reasoning.\n")
	b.WriteString("2. Immediately following the closing </think> tag, provide the single next action command using the exact format specified below.\n\n")
	b.WriteString(actionContract)
	b.WriteString("\n\nYour Response:")

	return b.String()
}
