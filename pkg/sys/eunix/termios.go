//go:build unix

// Copyright 2015 go-termios Author. All Rights Reserved.
// https://github.com/go-termios/termios
// Author: John Lenton <chipaca@github.com>

// Package eunix provides access to UNIX-specific system facilities used by
// the terminal interface.
package eunix

import "golang.org/x/sys/unix"

// Termios represents terminal attributes.
type Termios unix.Termios

// TermiosForFd returns a pointer to a Termios structure if the file
// descriptor is open on a terminal device.
func TermiosForFd(fd int) (*Termios, error) {
	term, err := unix.IoctlGetTermios(fd, getAttrIOCTL)
	return (*Termios)(term), err
}

// ApplyToFd applies term to the given file descriptor.
func (term *Termios) ApplyToFd(fd int) error {
	return unix.IoctlSetTermios(fd, setAttrNowIOCTL, (*unix.Termios)(term))
}

// Copy returns a copy of term.
func (term *Termios) Copy() *Termios {
	v := *term
	return &v
}

// SetICanon sets the canonical flag.
func (term *Termios) SetICanon(v bool) {
	if v {
		term.Lflag |= unix.ICANON
	} else {
		term.Lflag &^= unix.ICANON
	}
}

// SetEcho sets the echo flag.
func (term *Termios) SetEcho(v bool) {
	if v {
		term.Lflag |= unix.ECHO
	} else {
		term.Lflag &^= unix.ECHO
	}
}
