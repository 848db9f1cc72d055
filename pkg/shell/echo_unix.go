//go:build unix

package shell

import "src.oopis.dev/pkg/sys/eunix"

// setEcho turns terminal echo on or off for the given file descriptor.
func setEcho(fd int, on bool) error {
	term, err := eunix.TermiosForFd(fd)
	if err != nil {
		return err
	}
	term.SetEcho(on)
	return term.ApplyToFd(fd)
}
