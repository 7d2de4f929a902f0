package misskey

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReactionCount is a strictly positive reaction tally. The platform never
// reports a zero-count reaction; a zero or negative value in a response is
// treated as a decode failure rather than silently kept.
type ReactionCount int

func (c *ReactionCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("reaction count must be positive, got %d", n)
	}
	*c = ReactionCount(n)
	return nil
}

// PartialUser is the author reference embedded in a note. Display names are
// deliberately not part of the timeline payload; they are resolved later
// through ShowUser.
type PartialUser struct {
	ID UserID `json:"id"`
}

// Note is one timeline entry. Records are constructed from a single page
// response, never mutated afterwards, and emitted immediately.
type Note struct {
	ID        NoteID      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	User      PartialUser `json:"user"`
	// Text is the note body; nil for a plain renote.
	Text *string `json:"text"`
	// CW is the content-warning label shown while the body is collapsed.
	CW           *string                       `json:"cw"`
	ReplyID      *NoteID                       `json:"replyId,omitempty"`
	RenoteID     *NoteID                       `json:"renoteId,omitempty"`
	RenoteCount  int                           `json:"renoteCount"`
	RepliesCount int                           `json:"repliesCount"`
	Reactions    map[ReactionKey]ReactionCount `json:"reactions"`
}

// DetailedUser is the full profile record returned by the users/show
// endpoint. A nil Name means the platform record has no display name and
// consumers should fall back to Username.
type DetailedUser struct {
	ID        UserID  `json:"id"`
	Name      *string `json:"name"`
	Username  string  `json:"username"`
	IsBot     bool    `json:"isBot"`
	IsCat     bool    `json:"isCat"`
	AvatarURL string  `json:"avatarUrl"`
}

// TimelineRequest is the channels/timeline request payload. The date bounds
// are part of the endpoint contract but the crawler never sets them.
type TimelineRequest struct {
	ChannelID ChannelID `json:"channelId"`
	Limit     int       `json:"limit"`
	SinceID   *NoteID   `json:"sinceId,omitempty"`
	UntilID   *NoteID   `json:"untilId,omitempty"`
	SinceDate *int64    `json:"sinceDate,omitempty"`
	UntilDate *int64    `json:"untilDate,omitempty"`
}

// ShowUserRequest is the users/show request payload.
type ShowUserRequest struct {
	UserID UserID `json:"userId"`
}
