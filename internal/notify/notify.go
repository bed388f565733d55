// Package notify tells people an address was shared with them.
//
// Delivery is best effort. Callers log a failed notification and carry on;
// the share itself is already stored.
package notify

import (
	"context"
	"log/slog"
)

// Share describes one new grant.
type Share struct {
	AddressID    string
	AddressLabel string
	OwnerID      string
	OwnerEmail   string // empty for the guest store
	Recipient    string
}

// Notifier delivers share notifications.
type Notifier interface {
	AddressShared(ctx context.Context, s Share) error
}

// LogNotifier only writes a log line. It is the default when no mail
// transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) AddressShared(_ context.Context, s Share) error {
	n.logger.Info("address shared",
		slog.String("addressID", s.AddressID),
		slog.String("label", s.AddressLabel),
		slog.String("recipient", s.Recipient),
	)
	return nil
}

// Discard drops every notification.
type Discard struct{}

func (Discard) AddressShared(context.Context, Share) error { return nil }
