package systemd

const (
	NotifySocketEnvVar = "NOTIFY_SOCKET"
	WatchdogUSecEnvVar = "WATCHDOG_USEC"
	WatchdogPIDEnvVar  = "WATCHDOG_PID"
	NotifyWatchdog     = "WATCHDOG=1"
	NotifyStopping     = "STOPPING=1"
	NotifyReady        = "READY=1"
	NotifyStatusPrefix = "STATUS="
)
