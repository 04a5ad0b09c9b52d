package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "hwbot/pkg/logx"
)

// systemdNotifier reports lifecycle to systemd (Type=notify units).
// Every call is a no-op when NOTIFY_SOCKET is unset.
type systemdNotifier struct {
	log      logx.Logger
	watchdog time.Duration
}

func newSystemdNotifier(log logx.Logger) *systemdNotifier {
	n := &systemdNotifier{log: log}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil && d > 0 {
		n.watchdog = d
		log.Debug("systemd watchdog enabled", logx.Duration("interval", d))
	}
	return n
}

func (n *systemdNotifier) notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
}

func (n *systemdNotifier) Ready() { n.notify(daemon.SdNotifyReady) }

func (n *systemdNotifier) Stopping() { n.notify(daemon.SdNotifyStopping) }

// Status publishes a one-line status (systemctl status).
func (n *systemdNotifier) Status(s string) { n.notify("STATUS=" + s) }

// Watchdog pets the systemd watchdog at half its interval until ctx is done.
// The poll interval is usually longer than WatchdogSec, so pings are not tied to cycles.
func (n *systemdNotifier) Watchdog(ctx context.Context) error {
	if n.watchdog <= 0 {
		return nil
	}
	t := time.NewTicker(n.watchdog / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n.notify(daemon.SdNotifyWatchdog)
		}
	}
}
