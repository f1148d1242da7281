package pairing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/duosnap/backend/internal/db"
)

// The core never owns chat, feed or notification delivery; it talks to
// them through these seams.

// ConversationCreator provisions the companion chat resource for a new
// pairing. A failure here is fatal to the whole daily batch.
type ConversationCreator interface {
	CreateConversation(ctx context.Context, pairingID, memberAID, memberBID string) (string, error)
}

// FeedPublisher publishes a denormalized entry for a completed
// pairing. Failures are logged, never retried by the core, and never
// undo completion.
type FeedPublisher interface {
	PublishCompleted(ctx context.Context, p *db.Pairing) error
}

// ReminderSender delivers a nudge from one pairing member to the
// other. The core only validates and throttles.
type ReminderSender interface {
	SendReminder(ctx context.Context, pairingID, fromMemberID, toMemberID string) error
}

// LocalConversationCreator mints conversation references locally.
// Stands in until the chat service is wired up.
type LocalConversationCreator struct{}

func (LocalConversationCreator) CreateConversation(_ context.Context, _, _, _ string) (string, error) {
	return uuid.NewString(), nil
}

// LogFeedPublisher logs completed pairings instead of publishing them.
type LogFeedPublisher struct {
	Logger *slog.Logger
}

func (f LogFeedPublisher) PublishCompleted(_ context.Context, p *db.Pairing) error {
	f.Logger.Info("pairing completed",
		"pairing_id", p.ID,
		"artificial", p.ArtificialCompletion,
		"private_a", p.PhotoAPrivate,
		"private_b", p.PhotoBPrivate,
	)
	return nil
}

// LogReminderSender logs reminder requests instead of delivering them.
type LogReminderSender struct {
	Logger *slog.Logger
}

func (r LogReminderSender) SendReminder(_ context.Context, pairingID, fromMemberID, toMemberID string) error {
	r.Logger.Info("reminder requested",
		"pairing_id", pairingID,
		"from", fromMemberID,
		"to", toMemberID,
	)
	return nil
}
