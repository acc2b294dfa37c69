//go:build !linux && !darwin

package main

import "errors"

func hostBanner() string {
	return "idt built on unknown host"
}

func enterRawMode(fd uintptr) (func(), error) {
	return nil, errors.New("interactive mode is not supported on this platform")
}
