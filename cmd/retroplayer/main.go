// Command retroplayer drives libretro cores without a display: it manages the
// installed core list, opens content and runs frames for testing cores and
// content.
package main

import (
	"os"

	"github.com/spf13/afero"
)

func main() {
	os.Exit(run(afero.NewOsFs(), os.Args[1:], os.Stdout, os.Stderr))
}
