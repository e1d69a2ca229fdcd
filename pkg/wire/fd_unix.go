//go:build unix

package wire

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// dupCloexec duplicates fd with close-on-exec set atomically, so a
// fork racing with the dup cannot inherit the new descriptor.
func dupCloexec(fd int) (int, error) {
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	return nfd, nil
}

// closeQuiet closes fd ignoring EINTR: the descriptor is released by
// the kernel regardless of the interrupt.
func closeQuiet(fd int) {
	_ = unix.Close(fd)
}

// AddFD duplicates fd and appends the duplicate to the message's
// descriptor array. The message owns the duplicate from here on; the
// caller keeps ownership of fd. On failure the message is unchanged.
func (m *Message) AddFD(fd int) error {
	nfd, err := dupCloexec(fd)
	if err != nil {
		return fmt.Errorf("unable to duplicate descriptor %d: %w", fd, err)
	}
	m.fds = append(m.fds, nfd)
	m.metrics.RecordFDAttached()
	return nil
}

// DupFD duplicates the descriptor in slot with close-on-exec and
// returns it. The caller owns the returned descriptor.
func (m *Message) DupFD(slot int) (int, error) {
	if slot < 0 || slot >= len(m.fds) {
		return -1, fmt.Errorf("descriptor slot %d out of range, %d attached: %w", slot, len(m.fds), ErrNoSuchSlot)
	}
	nfd, err := dupCloexec(m.fds[slot])
	if err != nil {
		return -1, fmt.Errorf("unable to duplicate descriptor in slot %d: %w", slot, err)
	}
	return nfd, nil
}
