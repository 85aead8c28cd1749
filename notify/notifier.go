package notify

// Notifier wraps the package-level send function to implement
// services.Alerter.
type Notifier struct{}

// NewNotifier creates a new notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// SendAlert pushes an escalation message to the ops chat.
func (n *Notifier) SendAlert(message string) {
	SendAlert(message)
}

// Ensure Notifier implements the Alerter interface
var _ interface {
	SendAlert(message string)
} = (*Notifier)(nil)
