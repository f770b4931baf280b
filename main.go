// The main package for the futdex executable.
package main

import (
	"github.com/futdex/futdex/cmd"
)

func main() {
	cmd.Execute()
}
