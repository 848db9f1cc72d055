package shell

import "golang.org/x/sys/windows"

// setEcho turns console echo on or off for the given file descriptor.
func setEcho(fd int, on bool) error {
	handle := windows.Handle(fd)
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		return err
	}
	if on {
		mode |= windows.ENABLE_ECHO_INPUT
	} else {
		mode &^= windows.ENABLE_ECHO_INPUT
	}
	return windows.SetConsoleMode(handle, mode)
}
