package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/shinokgavrin/Koch/internal/core"
	"github.com/shinokgavrin/Koch/internal/model"
)

const (
	historyFetchCap = 500
	historyPageSize = 100
)

// MessagesSince fetches target-channel history back to the cutoff and
// returns enriched records, newest first. The walk runs newest to oldest and
// stops at the first message dated before the cutoff or at the fetch cap.
// Each call re-walks the history; nothing is cached.
func (a *Adapter) MessagesSince(ctx context.Context, cutoff time.Time) ([]model.Message, error) {
	_, target, ok := a.channels()
	if !ok {
		return nil, errors.New("target channel not resolved")
	}

	entities := core.NewEntitySet()
	var raw []core.RawMessage
	offsetID := 0

walk:
	for len(raw) < historyFetchCap {
		limit := historyPageSize
		if rest := historyFetchCap - len(raw); rest < limit {
			limit = rest
		}

		res, err := a.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     target.InputPeer(),
			OffsetID: offsetID,
			Limit:    limit,
		})
		if err != nil {
			return nil, fmt.Errorf("get history: %w", err)
		}

		batch, ok := extractHistory(res, entities)
		if !ok || len(batch) == 0 {
			break
		}

		for _, mc := range batch {
			switch m := mc.(type) {
			case *tg.Message:
				offsetID = m.ID
				if time.Unix(int64(m.Date), 0).Before(cutoff) {
					break walk
				}
				raw = append(raw, rawFromMessage(m))
			case *tg.MessageService:
				offsetID = m.ID
				if time.Unix(int64(m.Date), 0).Before(cutoff) {
					break walk
				}
			case *tg.MessageEmpty:
				offsetID = m.ID
			}
		}

		if len(batch) < limit {
			// Reached the start of the channel.
			break
		}
	}

	records := core.BuildRecords(raw, core.MarkedID(target.ID()), cutoff, core.NewOriginChain(entities))
	a.Logger.Info("History fetched",
		zap.Int("message_count", len(records)),
		zap.Time("cutoff", cutoff))
	return records, nil
}

func rawFromMessage(m *tg.Message) core.RawMessage {
	r := core.RawMessage{
		ID:   m.ID,
		Text: m.Message,
		Date: time.Unix(int64(m.Date), 0).UTC(),
	}
	fwd, ok := m.GetFwdFrom()
	if !ok {
		return r
	}
	r.Forwarded = true
	if from, ok := fwd.GetFromID(); ok {
		switch p := from.(type) {
		case *tg.PeerChannel:
			r.Fwd.ChannelID = p.ChannelID
		case *tg.PeerChat:
			r.Fwd.ChatID = p.ChatID
		case *tg.PeerUser:
			r.Fwd.UserID = p.UserID
		}
	}
	if name, ok := fwd.GetFromName(); ok {
		r.Fwd.FromName = name
	}
	return r
}

// extractHistory pulls the message list out of a history result and folds
// the accompanying chat and user entities into the set used for origin
// resolution.
func extractHistory(res tg.MessagesMessagesClass, entities *core.EntitySet) ([]tg.MessageClass, bool) {
	var (
		msgs  []tg.MessageClass
		chats []tg.ChatClass
		users []tg.UserClass
	)
	switch h := res.(type) {
	case *tg.MessagesMessages:
		msgs, chats, users = h.Messages, h.Chats, h.Users
	case *tg.MessagesMessagesSlice:
		msgs, chats, users = h.Messages, h.Chats, h.Users
	case *tg.MessagesChannelMessages:
		msgs, chats, users = h.Messages, h.Chats, h.Users
	default:
		return nil, false
	}

	for _, c := range chats {
		switch ch := c.(type) {
		case *tg.Channel:
			username, _ := ch.GetUsername()
			entities.Channels[ch.ID] = core.ChannelEntity{Title: ch.Title, Username: username}
		case *tg.Chat:
			entities.Chats[ch.ID] = core.ChatEntity{Title: ch.Title}
		}
	}
	for _, u := range users {
		if usr, ok := u.(*tg.User); ok {
			entities.Users[usr.ID] = core.UserEntity{
				FirstName: usr.FirstName,
				LastName:  usr.LastName,
				Username:  usr.Username,
			}
		}
	}
	return msgs, true
}
