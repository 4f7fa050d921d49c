// Package systemd implements the sd_notify datagram protocol used by the
// daemon to report readiness, status and watchdog keep-alives.
package systemd

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeoCommon/egrim/pkg/log"
)

var ErrNoNotifySocket = errors.New("systemd-notify socket was not available")

// EntertainWatchdog sends a notification to the systemd watchdog
func EntertainWatchdog() error {
	log.Debug("notifying systemd watchdog")
	return Notify(NotifyWatchdog)
}

// Ready tells systemd that startup is complete
func Ready() error {
	return Notify(NotifyReady)
}

// Stopping tells systemd that shutdown has begun
func Stopping() error {
	return Notify(NotifyStopping)
}

// Status sets the free-form status line shown by systemctl status
func Status(s string) error {
	return Notify(NotifyStatusPrefix + strings.ReplaceAll(s, "\n", " "))
}

// Notify sends the provided assignments as one datagram to the systemd socket
func Notify(msgs ...string) error {
	name := os.Getenv(NotifySocketEnvVar)
	if name == "" {
		return ErrNoNotifySocket
	}

	// abstract namespace socket
	if name[0] == '@' {
		name = "\x00" + name[1:]
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: name})
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(strings.Join(msgs, "\n")))
	return err
}

// WatchdogInterval returns the keep-alive deadline systemd expects, zero if
// the watchdog is disabled or meant for another process
func WatchdogInterval() time.Duration {
	usec, err := strconv.ParseInt(os.Getenv(WatchdogUSecEnvVar), 10, 64)
	if err != nil || usec <= 0 {
		return 0
	}

	if pid := os.Getenv(WatchdogPIDEnvVar); pid != "" && pid != strconv.Itoa(os.Getpid()) {
		return 0
	}

	return time.Duration(usec) * time.Microsecond
}
