package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shinokgavrin/Koch/internal/model"
)

// CombinedSeparator joins per-message blocks in the combined-text view.
const CombinedSeparator = "\n\n---\n\n"

// RawMessage is a channel message as fetched from history, before
// enrichment. Forwarded marks whether Fwd carries a forward annotation.
type RawMessage struct {
	ID        int
	Text      string
	Date      time.Time
	Forwarded bool
	Fwd       ForwardHeader
}

// BuildRecords turns raw history into API message records: messages dated
// before the cutoff or with empty/whitespace-only text are dropped, each
// survivor gets a deep link and, for forwards, a resolved origin. The result
// is sorted by timestamp descending regardless of input order.
func BuildRecords(raw []RawMessage, channelID int64, cutoff time.Time, chain []OriginResolver) []model.Message {
	out := make([]model.Message, 0, len(raw))
	for _, m := range raw {
		if m.Date.Before(cutoff) {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}

		link := DeepLink(channelID, m.ID)
		rec := model.Message{
			MessageID:    m.ID,
			Text:         text,
			Date:         m.Date.Unix(),
			ReadableDate: m.Date.UTC().Format(time.RFC3339),
			Link:         link,
			TextWithLink: text + "\nSource: " + link,
		}
		if m.Forwarded {
			o := ResolveOrigin(m.Fwd, chain)
			rec.ForwardedFromName = o.Name
			rec.ForwardedFromHandle = o.Handle
			rec.ForwardedFromID = o.ID
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// SourceLine picks the attribution for a record: @handle when the origin
// handle is known, else the origin name, else the deep link.
func SourceLine(m model.Message) string {
	switch {
	case m.ForwardedFromHandle != nil && *m.ForwardedFromHandle != "":
		return "@" + *m.ForwardedFromHandle
	case m.ForwardedFromName != nil && *m.ForwardedFromName != "":
		return *m.ForwardedFromName
	default:
		return m.Link
	}
}

// CombineMessages reshapes records into one delimited text blob for the
// downstream language-processing pipeline.
func CombineMessages(msgs []model.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Text+"\nSource: "+SourceLine(m))
	}
	return strings.Join(parts, CombinedSeparator)
}
