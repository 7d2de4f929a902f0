package misskey

import "encoding/json"

// NoteID identifies a single note. The value is opaque: it is compared
// byte-for-byte and used as a pagination cursor, never parsed.
type NoteID string

// ChannelID identifies a channel on the instance.
type ChannelID string

// UserID identifies a user on the instance.
type UserID string

func (id NoteID) String() string    { return string(id) }
func (id ChannelID) String() string { return string(id) }
func (id UserID) String() string    { return string(id) }

// RedactedMarker replaces the token value in any diagnostic output.
const RedactedMarker = "*****"

// Token is the instance API credential. Its textual renderings (String,
// GoString, and therefore %s/%v/%#v and log fields) always show
// RedactedMarker; the real value is only reachable through Reveal and
// through JSON marshaling when the authenticated request body is built.
type Token struct {
	value string
}

// NewToken wraps a raw credential string.
func NewToken(value string) Token {
	return Token{value: value}
}

// Reveal returns the raw credential for request construction.
func (t Token) Reveal() string { return t.value }

// IsZero reports whether no credential has been set.
func (t Token) IsZero() bool { return t.value == "" }

func (t Token) String() string   { return RedactedMarker }
func (t Token) GoString() string { return "misskey.Token(" + RedactedMarker + ")" }

// MarshalJSON emits the real value. This is the one deliberate exit: the
// token field of an authenticated request must carry the credential.
func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.value)
}

func (t *Token) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.value)
}
