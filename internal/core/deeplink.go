package core

import (
	"fmt"
	"strconv"
	"strings"
)

// MarkedID converts a bare channel identifier to the -100-prefixed form used
// by web links and bot-style APIs. Already-negative ids pass through.
func MarkedID(channelID int64) int64 {
	if channelID < 0 {
		return channelID
	}
	marked, err := strconv.ParseInt("-100"+strconv.FormatInt(channelID, 10), 10, 64)
	if err != nil {
		return channelID
	}
	return marked
}

// DeepLink builds a t.me/c link into a private channel. The -100 prefix of a
// marked channel id is stripped to obtain the web-linkable short id.
func DeepLink(channelID int64, messageID int) string {
	short := strconv.FormatInt(channelID, 10)
	short = strings.TrimPrefix(short, "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", short, messageID)
}
