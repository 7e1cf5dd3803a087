package model

// Message is one retrieved channel message, enriched with a deep link and
// forwarded-from provenance. The origin fields are independently nullable:
// resolution may fail or the message may not be a forward at all.
type Message struct {
	MessageID           int     `json:"message_id"`
	Text                string  `json:"text"`
	Date                int64   `json:"date"`          // UTC epoch seconds
	ReadableDate        string  `json:"readable_date"` // RFC 3339
	Link                string  `json:"link"`
	TextWithLink        string  `json:"text_with_link"`
	ForwardedFromName   *string `json:"forwarded_from_name"`
	ForwardedFromHandle *string `json:"forwarded_from_handle"`
	ForwardedFromID     *int64  `json:"forwarded_from_id"`
}

type RecentMessagesResponse struct {
	Success        bool      `json:"success"`
	Messages       []Message `json:"messages"`
	MessageCount   int       `json:"message_count"`
	HoursRequested int       `json:"hours_requested"`
	TimeThreshold  string    `json:"time_threshold"`
	ChannelID      string    `json:"channel_id"`
}

type CombinedMessagesResponse struct {
	Success        bool      `json:"success"`
	CombinedText   string    `json:"combined_text"`
	MessageCount   int       `json:"message_count"`
	Messages       []Message `json:"messages"`
	ProcessingDate string    `json:"processing_date"`
}
