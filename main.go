// ./main.go
package main

import (
	"github.com/xkilldash9x/deskpilot-cli/cmd"
)

// main is the entry point for the deskpilot CLI application.
func main() {
	cmd.Execute()
}
