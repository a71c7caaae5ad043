package notify

import (
	"context"
	"fmt"
	"strings"

	"adboard/market/internal/models"
)

// CompositeNotifier delivers every notification to all of its notifiers.
type CompositeNotifier struct {
	notifiers []Notifier
}

// NewCompositeNotifier creates a CompositeNotifier.
func NewCompositeNotifier(notifiers ...Notifier) *CompositeNotifier {
	return &CompositeNotifier{notifiers: notifiers}
}

// Add appends a notifier. Nil is ignored.
func (c *CompositeNotifier) Add(n Notifier) {
	if n != nil {
		c.notifiers = append(c.notifiers, n)
	}
}

// Notify calls every notifier, even after a failure, and joins the errors.
func (c *CompositeNotifier) Notify(ctx context.Context, n models.Notification) error {
	if len(c.notifiers) == 0 {
		return fmt.Errorf("no notifiers configured in CompositeNotifier")
	}

	var allErrors []string
	for _, notifier := range c.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			allErrors = append(allErrors, err.Error())
		}
	}

	if len(allErrors) > 0 {
		return fmt.Errorf("composite notify failed: [ %s ]", strings.Join(allErrors, "; "))
	}
	return nil
}
