//go:build linux

package kcdbus

import (
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// IsInterfaceUp reports whether ifname currently has IFF_UP set. Adapted
// from the teacher's iface_linux.go, retargeted to this module's error
// taxonomy.
func IsInterfaceUp(ifname string) (bool, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return false, ioErrorf("open ioctl socket", err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(ifname)
	if err != nil {
		return false, ioErrorf("build ifreq for "+ifname, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return false, ioErrorf("SIOCGIFFLAGS on "+ifname, err)
	}
	flags := ifr.Uint16()
	return flags&unix.IFF_UP != 0, nil
}

func setInterfaceFlag(ifname string, up bool) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return ioErrorf("open ioctl socket", err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(ifname)
	if err != nil {
		return ioErrorf("build ifreq for "+ifname, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return ioErrorf("SIOCGIFFLAGS on "+ifname, err)
	}
	flags := ifr.Uint16()
	if up {
		flags |= unix.IFF_UP
	} else {
		flags &^= unix.IFF_UP
	}
	ifr.SetUint16(flags)
	if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		return ioErrorf("SIOCSIFFLAGS on "+ifname, err)
	}
	return nil
}

// SetInterfaceUp brings ifname up via SIOCSIFFLAGS.
func SetInterfaceUp(ifname string) error { return setInterfaceFlag(ifname, true) }

// SetInterfaceDown brings ifname down via SIOCSIFFLAGS.
func SetInterfaceDown(ifname string) error { return setInterfaceFlag(ifname, false) }

// LinuxCANInterfaceOptions configures a SocketCAN interface's link-layer
// parameters via the "ip link" tool, since they have no ioctl equivalent
// exposed to unprivileged code.
type LinuxCANInterfaceOptions struct {
	BitrateBPS   int
	RestartMS    int
	TxQueueLen   int
}

// ConfigureLinuxCANInterface applies opts to ifname via "ip link set", then
// brings the interface up. Grounded on the teacher's iface_linux.go, which
// shells out to "ip link" for the same reason: these are CAN-controller
// parameters, not generic network-device flags.
func ConfigureLinuxCANInterface(ifname string, opts LinuxCANInterfaceOptions) error {
	args := []string{"link", "set", ifname, "type", "can"}
	if opts.BitrateBPS > 0 {
		args = append(args, "bitrate", strconv.Itoa(opts.BitrateBPS))
	}
	if opts.RestartMS > 0 {
		args = append(args, "restart-ms", strconv.Itoa(opts.RestartMS))
	}
	if err := exec.Command("ip", args...).Run(); err != nil {
		return ioErrorf("ip link set "+ifname, err)
	}

	if opts.TxQueueLen > 0 {
		if err := exec.Command("ip", "link", "set", ifname, "txqueuelen", strconv.Itoa(opts.TxQueueLen)).Run(); err != nil {
			return ioErrorf("ip link set txqueuelen "+ifname, err)
		}
	}

	if err := exec.Command("ip", "link", "set", ifname, "up").Run(); err != nil {
		return ioErrorf("ip link set up "+ifname, err)
	}
	return nil
}
