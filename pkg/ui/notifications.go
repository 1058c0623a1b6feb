package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender is a platform-specific desktop notification
// mechanism
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender notifies via notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender notifies via osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier sends a desktop notification when a long run finishes.
// Notifications are best-effort: failures and unsupported platforms
// are silently ignored.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a notifier for the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender creates a notifier with an explicit sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify sends a notification, ignoring delivery failures
func (n *Notifier) Notify(title, message string) {
	if n == nil || n.sender == nil {
		return
	}
	_ = n.sender.Send(title, message)
}
