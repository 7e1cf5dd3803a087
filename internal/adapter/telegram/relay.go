package telegram

import (
	"context"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

type forwardFunc func(ctx context.Context, messageID int) error

// relay consumes new-channel-message updates and forwards messages from the
// source channel. Each update is handled independently: a failed forward is
// logged and swallowed so the subscription stays live for the next message.
// No retry, no dedup; a redelivered update is forwarded again.
type relay struct {
	log      *zap.Logger
	forward  forwardFunc
	sourceID func() int64 // 0 until channel resolution succeeds
}

func (r *relay) Handle(ctx context.Context, update *tg.UpdateNewChannelMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	source := r.sourceID()
	if source == 0 {
		return nil
	}
	peer, ok := msg.PeerID.(*tg.PeerChannel)
	if !ok || peer.ChannelID != source {
		return nil
	}

	if err := r.forward(ctx, msg.ID); err != nil {
		r.log.Error("Forward failed", zap.Int("message_id", msg.ID), zap.Error(err))
		return nil
	}
	r.log.Info("Forwarded message", zap.Int("message_id", msg.ID), zap.Int64("source_channel", source))
	return nil
}
