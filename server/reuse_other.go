//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package server

import "syscall"

// no portable SO_REUSEPORT here; the platform default applies
func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}
