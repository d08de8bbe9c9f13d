// The main package for the deindexer executable.
package main

import (
	"github.com/JakeFAU/gsc-deindexer/cmd"
)

func main() {
	cmd.Execute()
}
