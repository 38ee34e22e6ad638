// Package notify moves alert notifications from the analysis pipeline to
// campaign owners: a publisher that enqueues them on a durable queue and a
// consumer that renders and sends them as plain-text email.
//
// Delivery is at-least-once: a message is removed from the queue only after
// its email went out, so any failure leaves it for redelivery.
package notify

import (
	"fmt"
	"strings"
)

// Notification is the wire entity placed on the queue. It exists only on
// the queue and in the consumer's working memory.
type Notification struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate rejects notifications that cannot be delivered.
func (n Notification) Validate() error {
	if n.ToEmail == "" {
		return fmt.Errorf("to_email is required")
	}
	if !strings.Contains(n.ToEmail, "@") {
		return fmt.Errorf("to_email %q is not a valid address", n.ToEmail)
	}
	if n.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}
