package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/pawsentry/pawsentry/internal/clock"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/internal/observability/metrics"
	"github.com/pawsentry/pawsentry/internal/providers/email"
	"github.com/pawsentry/pawsentry/internal/providers/push"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChannelFlags is the set of channels a rule asked for.
type ChannelFlags struct {
	InApp bool
	Email bool
	Push  bool
}

// Dispatcher fans a stored notification out to its delivery channels and
// persists the per-channel outcome on the notification row.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *notifdomain.Notification, flags ChannelFlags) error
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Repo         notifdomain.Repository
	SettingsRepo notifdomain.SettingsRepository
	Email        email.Provider
	Push         push.Provider
	Metrics      *metrics.Metrics `optional:"true"`
}

type dispatcher struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	repo         notifdomain.Repository
	settingsRepo notifdomain.SettingsRepository
	email        email.Provider
	push         push.Provider
	metrics      *metrics.Metrics
}

func New(p Params) Dispatcher {
	return &dispatcher{
		db:           p.DB,
		log:          p.Log.Named("dispatch"),
		clock:        p.Clock,
		repo:         p.Repo,
		settingsRepo: p.SettingsRepo,
		email:        p.Email,
		push:         p.Push,
		metrics:      p.Metrics,
	}
}

// Dispatch never fails because a channel failed. A channel error is
// recorded on the notification and delivery continues; only a persistence
// error is returned.
func (d *dispatcher) Dispatch(ctx context.Context, n *notifdomain.Notification, flags ChannelFlags) error {
	if n == nil {
		return fmt.Errorf("dispatch: notification is required")
	}

	settings, err := d.settingsRepo.FindSettings(ctx, d.db, n.OwnerID)
	if err != nil {
		return fmt.Errorf("dispatch: load settings: %w", err)
	}
	if settings == nil {
		defaults := notifdomain.DefaultSettings(n.OwnerID)
		settings = &defaults
	}

	now := d.clock.Now()
	states := notifdomain.ChannelStates{}

	// The stored row is the in-app delivery, so that channel cannot fail.
	states[notifdomain.ChannelInApp] = notifdomain.ChannelState{
		Requested: true,
		Sent:      true,
		SentAt:    &now,
	}
	d.recordOutcome(ctx, notifdomain.ChannelInApp, metrics.DeliveryOutcomeSent)

	states[notifdomain.ChannelEmail] = d.dispatchEmail(ctx, n, flags, settings, now)
	states[notifdomain.ChannelPush] = d.dispatchPush(ctx, n, flags, settings, now)

	n.Channels = datatypes.NewJSONType(states)
	if err := d.repo.Update(ctx, d.db, n); err != nil {
		return fmt.Errorf("dispatch: persist channel state: %w", err)
	}
	return nil
}

func (d *dispatcher) dispatchEmail(ctx context.Context, n *notifdomain.Notification, flags ChannelFlags, settings *notifdomain.NotificationSettings, now time.Time) notifdomain.ChannelState {
	state := notifdomain.ChannelState{Requested: flags.Email}
	if !flags.Email {
		return state
	}
	if !settings.EmailEnabled {
		d.recordOutcome(ctx, notifdomain.ChannelEmail, metrics.DeliveryOutcomeSkipped)
		return state
	}

	err := d.email.Send(ctx, email.Message{
		To:      settings.EmailAddress,
		Subject: n.Title,
		Body:    n.Message,
	})
	if err != nil {
		state.Error = err.Error()
		d.recordOutcome(ctx, notifdomain.ChannelEmail, metrics.DeliveryOutcomeFailed)
		d.log.Warn("email delivery failed",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err),
		)
		return state
	}

	state.Sent = true
	state.SentAt = &now
	d.recordOutcome(ctx, notifdomain.ChannelEmail, metrics.DeliveryOutcomeSent)
	return state
}

func (d *dispatcher) dispatchPush(ctx context.Context, n *notifdomain.Notification, flags ChannelFlags, settings *notifdomain.NotificationSettings, now time.Time) notifdomain.ChannelState {
	state := notifdomain.ChannelState{Requested: flags.Push}
	if !flags.Push {
		return state
	}
	if !settings.PushEnabled {
		d.recordOutcome(ctx, notifdomain.ChannelPush, metrics.DeliveryOutcomeSkipped)
		return state
	}

	err := d.push.Send(ctx, push.Message{
		OwnerID:  n.OwnerID,
		Title:    n.Title,
		Body:     n.Message,
		Priority: n.Priority,
		Data:     n.Data,
	})
	if err != nil {
		state.Error = err.Error()
		d.recordOutcome(ctx, notifdomain.ChannelPush, metrics.DeliveryOutcomeFailed)
		d.log.Warn("push delivery failed",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err),
		)
		return state
	}

	state.Sent = true
	state.SentAt = &now
	d.recordOutcome(ctx, notifdomain.ChannelPush, metrics.DeliveryOutcomeSent)
	return state
}

func (d *dispatcher) recordOutcome(ctx context.Context, channel, outcome string) {
	metrics.Engine().RecordDelivery(channel, outcome)
	d.metrics.RecordChannelDelivery(ctx, channel, outcome)
}
