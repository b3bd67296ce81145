//go:build linux

package probes

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// bindToDevice returns a dialer control function that pins the socket to
// iface with SO_BINDTODEVICE.
func bindToDevice(iface string) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.BindToDevice(int(fd), iface)
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
