//go:build linux || darwin

package main

import (
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// hostBanner describes the machine the table was built on.
func hostBanner() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "idt built on unknown host"
	}

	return "idt built on " + joinNonEmpty(
		unix.ByteSliceToString(uts.Sysname[:]),
		unix.ByteSliceToString(uts.Release[:]),
		unix.ByteSliceToString(uts.Machine[:]),
	)
}

// enterRawMode turns off line buffering and echo on fd so the browser sees
// every key press. The returned function restores the previous settings.
func enterRawMode(fd uintptr) (func(), error) {
	var orig unix.Termios
	if err := termios.Tcgetattr(fd, &orig); err != nil {
		return nil, err
	}

	raw := orig
	raw.Lflag &^= unix.ICANON | unix.ECHO
	if err := termios.Tcsetattr(fd, termios.TCSANOW, &raw); err != nil {
		return nil, err
	}

	return func() {
		termios.Tcsetattr(fd, termios.TCSANOW, &orig)
	}, nil
}
