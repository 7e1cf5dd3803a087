package core

import "errors"

// ErrNotResolvable is returned by an OriginResolver that has no answer for
// the given forward header; the caller moves on to the next strategy.
var ErrNotResolvable = errors.New("origin not resolvable")

// ForwardHeader carries the raw forwarded-from annotation of a message.
// At most one of the peer ids is set; FromName may be present alone when the
// platform only knows a plain display name (deleted account, hidden user).
type ForwardHeader struct {
	ChannelID int64
	ChatID    int64
	UserID    int64
	FromName  string
}

// Origin is a resolved forwarding origin. All fields are optional.
type Origin struct {
	Name   *string
	Handle *string
	ID     *int64
}

// OriginResolver attempts to produce an Origin from a forward header.
type OriginResolver interface {
	Resolve(h ForwardHeader) (Origin, error)
}

// EntitySet holds the chat and user entities returned alongside a history
// fetch, keyed by bare id. Resolution strategies read from it.
type EntitySet struct {
	Channels map[int64]ChannelEntity
	Chats    map[int64]ChatEntity
	Users    map[int64]UserEntity
}

type ChannelEntity struct {
	Title    string
	Username string
}

type ChatEntity struct {
	Title string
}

type UserEntity struct {
	FirstName string
	LastName  string
	Username  string
}

func NewEntitySet() *EntitySet {
	return &EntitySet{
		Channels: make(map[int64]ChannelEntity),
		Chats:    make(map[int64]ChatEntity),
		Users:    make(map[int64]UserEntity),
	}
}

// chatResolver resolves channel and basic-group origins to title/handle/id.
type chatResolver struct {
	entities *EntitySet
}

func (r chatResolver) Resolve(h ForwardHeader) (Origin, error) {
	if h.ChannelID != 0 {
		ch, ok := r.entities.Channels[h.ChannelID]
		if !ok {
			return Origin{}, ErrNotResolvable
		}
		o := Origin{ID: ptr(h.ChannelID)}
		if ch.Title != "" {
			o.Name = ptr(ch.Title)
		}
		if ch.Username != "" {
			o.Handle = ptr(ch.Username)
		}
		return o, nil
	}
	if h.ChatID != 0 {
		c, ok := r.entities.Chats[h.ChatID]
		if !ok {
			return Origin{}, ErrNotResolvable
		}
		o := Origin{ID: ptr(h.ChatID)}
		if c.Title != "" {
			o.Name = ptr(c.Title)
		}
		return o, nil
	}
	return Origin{}, ErrNotResolvable
}

// userResolver resolves user-sender origins. The display name is the full
// name when both parts are known, falling back to the first name.
type userResolver struct {
	entities *EntitySet
}

func (r userResolver) Resolve(h ForwardHeader) (Origin, error) {
	if h.UserID == 0 {
		return Origin{}, ErrNotResolvable
	}
	u, ok := r.entities.Users[h.UserID]
	if !ok {
		return Origin{}, ErrNotResolvable
	}
	o := Origin{ID: ptr(h.UserID)}
	name := u.FirstName
	if name != "" && u.LastName != "" {
		name = name + " " + u.LastName
	}
	if name != "" {
		o.Name = ptr(name)
	}
	if u.Username != "" {
		o.Handle = ptr(u.Username)
	}
	return o, nil
}

// nameResolver is the last resort: a bare origin name with no entity behind
// it, as happens when the origin account was deleted.
type nameResolver struct{}

func (nameResolver) Resolve(h ForwardHeader) (Origin, error) {
	if h.FromName == "" {
		return Origin{}, ErrNotResolvable
	}
	return Origin{Name: ptr(h.FromName)}, nil
}

// NewOriginChain returns the resolution strategies in preference order:
// chat entity, then user sender, then bare name.
func NewOriginChain(entities *EntitySet) []OriginResolver {
	return []OriginResolver{
		chatResolver{entities: entities},
		userResolver{entities: entities},
		nameResolver{},
	}
}

// ResolveOrigin tries each strategy in order; the first success wins and
// exhaustion yields an absent origin (all fields nil).
func ResolveOrigin(h ForwardHeader, chain []OriginResolver) Origin {
	for _, r := range chain {
		o, err := r.Resolve(h)
		if err == nil {
			return o
		}
	}
	return Origin{}
}

func ptr[T any](v T) *T {
	return &v
}
