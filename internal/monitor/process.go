package monitor

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// serverProcessName is the executable name of the MPD daemon.
const serverProcessName = "mpd"

// LocalServerRunning reports whether an mpd process is running on this
// machine. Processes that vanish or deny access while being inspected are
// skipped.
func LocalServerRunning() (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, fmt.Errorf("listing processes: %w", err)
	}
	for _, p := range procs {
		if isServerProcess(p) {
			return true, nil
		}
	}
	return false, nil
}

func isServerProcess(p *process.Process) bool {
	name, err := p.Name()
	if err == nil && name == serverProcessName {
		return true
	}
	// Name can be truncated or renamed; fall back to argv[0].
	args, err := p.CmdlineSlice()
	if err != nil || len(args) == 0 {
		return false
	}
	return filepath.Base(args[0]) == serverProcessName
}

// IsLocalAddress reports whether the server lives on this machine: a unix
// socket, or a TCP address on a loopback host.
func IsLocalAddress(network, addr string) bool {
	if network == "unix" {
		return true
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
