// Oopis is a simulated operating system core behind a Unix-like shell. It
// keeps a persistent virtual filesystem, users and sessions in a single
// database file on the host, and runs commands against them both
// interactively and from scripts.
package main

import (
	"os"

	"src.oopis.dev/pkg/buildinfo"
	"src.oopis.dev/pkg/lsp"
	"src.oopis.dev/pkg/prog"
	"src.oopis.dev/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			&buildinfo.Program{}, &lsp.Program{}, &shell.Program{})))
}
