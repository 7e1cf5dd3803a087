package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/shinokgavrin/Koch/config"
	"github.com/shinokgavrin/Koch/internal/core"
)

// Adapter owns the Telegram connection: it authorizes, resolves the source
// and target channels once, relays new source-channel messages to the target,
// and serves history fetches for the REST adapter. Connection state and the
// resolved peers are written during startup and only read afterwards.
type Adapter struct {
	Config config.TelegramConfig
	Logger *zap.Logger

	client *gotd.Client
	api    *tg.Client
	sess   *stringSession

	mu        sync.RWMutex
	connected bool
	resolved  bool
	source    peers.Channel
	target    peers.Channel
}

func NewAdapter(cfg config.TelegramConfig, logger *zap.Logger) *Adapter {
	a := &Adapter{
		Config: cfg,
		Logger: logger,
	}
	a.sess = newStringSession(cfg.SessionToken, logger.Named("session"))

	rel := &relay{
		log:      logger.Named("relay"),
		forward:  a.Forward,
		sourceID: a.sourceChannelID,
	}
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		return rel.Handle(ctx, u)
	})

	a.client = gotd.NewClient(cfg.APIID, cfg.APIHash, gotd.Options{
		SessionStorage: a.sess,
		UpdateHandler:  dispatcher,
		Logger:         logger.Named("mtproto"),
	})
	a.api = a.client.API()
	return a
}

// Run connects and blocks until ctx is canceled, at which point the
// connection is closed. Channel-resolution failure is non-fatal: the
// connection stays up in degraded mode so the HTTP surface keeps answering.
func (a *Adapter) Run(ctx context.Context) error {
	return a.client.Run(ctx, func(ctx context.Context) error {
		if err := a.authorize(ctx); err != nil {
			return fmt.Errorf("authorize: %w", err)
		}
		a.setConnected(true)
		defer a.setConnected(false)

		if err := a.resolveChannels(ctx); err != nil {
			a.Logger.Error("Channel setup failed, forwarding disabled", zap.Error(err))
		} else {
			a.Logger.Info("Auto-forwarding active",
				zap.String("source", a.Config.SourceChannel),
				zap.String("target", a.Config.TargetChannel))
		}

		<-ctx.Done()
		return ctx.Err()
	})
}

func (a *Adapter) authorize(ctx context.Context) error {
	flow := auth.NewFlow(
		auth.CodeOnly(a.Config.Phone, auth.CodeAuthenticatorFunc(promptCode)),
		auth.SendCodeOptions{},
	)
	if err := a.client.Auth().IfNecessary(ctx, flow); err != nil {
		return err
	}

	self, err := a.client.Self(ctx)
	if err != nil {
		return fmt.Errorf("self: %w", err)
	}
	a.Logger.Info("Telegram connected", zap.String("first_name", self.FirstName))

	if a.Config.SessionToken == "" {
		a.Logger.Info("Copy this SESSION_STRING and set it for future runs",
			zap.String("session_string", a.sess.Token()))
	}
	return nil
}

func promptCode(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter the login code sent by Telegram: ")
	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(code), nil
}

// resolveChannels maps both configured handles to channel peers. Resolution
// happens exactly once per process; a failure leaves the adapter unresolved.
func (a *Adapter) resolveChannels(ctx context.Context) error {
	manager := peers.Options{Logger: a.Logger.Named("peers")}.Build(a.api)

	source, err := resolveChannel(ctx, manager, a.Config.SourceChannel)
	if err != nil {
		return fmt.Errorf("resolve source %q: %w", a.Config.SourceChannel, err)
	}
	target, err := resolveChannel(ctx, manager, a.Config.TargetChannel)
	if err != nil {
		return fmt.Errorf("resolve target %q: %w", a.Config.TargetChannel, err)
	}

	a.mu.Lock()
	a.source = source
	a.target = target
	a.resolved = true
	a.mu.Unlock()

	a.Logger.Info("Channels resolved",
		zap.String("source_title", source.VisibleName()),
		zap.String("target_title", target.VisibleName()),
		zap.Int64("target_id", target.ID()))
	return nil
}

func resolveChannel(ctx context.Context, manager *peers.Manager, handle string) (peers.Channel, error) {
	p, err := manager.ResolveDomain(ctx, strings.TrimPrefix(handle, "@"))
	if err != nil {
		return peers.Channel{}, err
	}
	ch, ok := p.(peers.Channel)
	if !ok {
		return peers.Channel{}, fmt.Errorf("%s is not a channel", handle)
	}
	return ch, nil
}

// Forward relays one message from the source to the target channel as a
// platform-native forward, preserving the forwarded-from annotation.
func (a *Adapter) Forward(ctx context.Context, messageID int) error {
	source, target, ok := a.channels()
	if !ok {
		return errors.New("channels not resolved")
	}
	_, err := a.api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
		FromPeer: source.InputPeer(),
		ID:       []int{messageID},
		RandomID: []int64{rand.Int63()},
		ToPeer:   target.InputPeer(),
	})
	return err
}

func (a *Adapter) setConnected(v bool) {
	a.mu.Lock()
	a.connected = v
	a.mu.Unlock()
}

func (a *Adapter) channels() (source, target peers.Channel, ok bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source, a.target, a.resolved
}

func (a *Adapter) sourceChannelID() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.resolved {
		return 0
	}
	return a.source.ID()
}

// Connected reports whether the client is authorized and running.
func (a *Adapter) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

// ChannelReady reports whether the target channel has been resolved.
func (a *Adapter) ChannelReady() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.resolved
}

// ForwardingActive reports whether both channels are resolved and the relay
// subscription can act on incoming messages.
func (a *Adapter) ForwardingActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.resolved
}

// TargetChannelID returns the target channel id in the -100-prefixed form
// used for deep links, or 0 when unresolved.
func (a *Adapter) TargetChannelID() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.resolved {
		return 0
	}
	return core.MarkedID(a.target.ID())
}
