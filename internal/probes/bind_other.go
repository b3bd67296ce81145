//go:build !linux

package probes

import "syscall"

// bindToDevice is a no-op where SO_BINDTODEVICE does not exist; probes
// follow the system routing table.
func bindToDevice(string) func(network, address string, c syscall.RawConn) error {
	return nil
}
