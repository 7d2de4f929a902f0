package misskey

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

// ReactionKind discriminates the canonical reaction-key variants.
type ReactionKind uint8

const (
	// ReactionCustom is a locally-hosted custom emoji, ":name@.:" on the wire.
	ReactionCustom ReactionKind = iota
	// ReactionUnicode is a standard Unicode emoji known to the registry,
	// stored in the registry's canonical form.
	ReactionUnicode
	// ReactionKeycapDigit is an ASCII digit followed by U+20E3 (combining
	// enclosing keycap).
	ReactionKeycapDigit
	// ReactionPunctuation is a single punctuation/symbol codepoint the emoji
	// registry does not know.
	ReactionPunctuation
	// ReactionUncategorized holds any other input verbatim.
	ReactionUncategorized
)

func (k ReactionKind) String() string {
	switch k {
	case ReactionCustom:
		return "custom"
	case ReactionUnicode:
		return "unicode"
	case ReactionKeycapDigit:
		return "keycap_digit"
	case ReactionPunctuation:
		return "punctuation"
	default:
		return "uncategorized"
	}
}

// ReactionKey is the canonical form of one reaction string. It is an
// immutable comparable value, safe as a map key, and round-trips through
// its textual form: ClassifyReaction(k.String()) == k for every producible
// key.
type ReactionKey struct {
	kind  ReactionKind
	value string
	digit int
}

// keycapMark is U+20E3 COMBINING ENCLOSING KEYCAP.
const keycapMark = '\u20e3'

// customEmojiPattern matches a local custom emoji reference and captures
// the inner name.
var customEmojiPattern = regexp.MustCompile(`^:([a-z0-9_-]+)@\.:$`)

// ClassifyReaction maps a raw reaction string to its canonical key. The
// function is total: unrecognized input (including the empty string) becomes
// an uncategorized key holding the input verbatim, never an error.
//
// Precedence, first match wins: custom emoji reference, digit keycap pair,
// Unicode registry emoji, lone punctuation/symbol codepoint, fallback. The
// keycap check has to run before the registry lookup: the registry also
// knows the bare digit+U+20E3 sequences, and those must stay keycap keys so
// a rendered keycap re-classifies to itself. Because the registry check
// runs before the punctuation check, symbol codepoints that the registry
// knows (such as U+2122 TRADE MARK SIGN) always classify as Unicode; the
// punctuation variant survives only for codepoints outside the registry.
func ClassifyReaction(raw string) ReactionKey {
	if m := customEmojiPattern.FindStringSubmatch(raw); m != nil {
		return ReactionKey{kind: ReactionCustom, value: m[1]}
	}
	if r, size := utf8.DecodeRuneInString(raw); size == 1 && r >= '0' && r <= '9' {
		if rest, restSize := utf8.DecodeRuneInString(raw[size:]); rest == keycapMark && size+restSize == len(raw) {
			return ReactionKey{kind: ReactionKeycapDigit, digit: int(r - '0')}
		}
	}
	if uniseg.GraphemeClusterCount(raw) == 1 {
		if info, err := gomoji.GetInfo(raw); err == nil {
			return ReactionKey{kind: ReactionUnicode, value: info.Character}
		}
	}
	if r, size := utf8.DecodeRuneInString(raw); size == len(raw) && size > 0 {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ReactionKey{kind: ReactionPunctuation, value: raw}
		}
	}
	return ReactionKey{kind: ReactionUncategorized, value: raw}
}

// CustomReaction builds a key for a local custom emoji name.
func CustomReaction(name string) ReactionKey {
	return ReactionKey{kind: ReactionCustom, value: name}
}

// UnicodeReaction builds a key for a registry emoji string. The caller is
// expected to pass the canonical form; ClassifyReaction is the safe path
// for arbitrary input.
func UnicodeReaction(emoji string) ReactionKey {
	return ReactionKey{kind: ReactionUnicode, value: emoji}
}

// KeycapReaction builds a key for a boxed digit 0-9.
func KeycapReaction(digit int) ReactionKey {
	return ReactionKey{kind: ReactionKeycapDigit, digit: digit}
}

// Kind reports the variant of the key.
func (k ReactionKey) Kind() ReactionKind { return k.kind }

// Name returns the custom emoji name; empty for other variants.
func (k ReactionKey) Name() string {
	if k.kind == ReactionCustom {
		return k.value
	}
	return ""
}

// Digit returns the keycap digit; -1 for other variants.
func (k ReactionKey) Digit() int {
	if k.kind == ReactionKeycapDigit {
		return k.digit
	}
	return -1
}

// String renders the key back to wire form. Rendering is deterministic:
// custom keys reproduce the exact ":name@.:" input, Unicode keys emit the
// registry's canonical string, keycap keys the two-character digit pair,
// and the remaining variants their stored content unchanged.
func (k ReactionKey) String() string {
	switch k.kind {
	case ReactionCustom:
		return ":" + k.value + "@.:"
	case ReactionKeycapDigit:
		return string([]rune{rune('0' + k.digit), keycapMark})
	default:
		return k.value
	}
}

// MarshalText makes ReactionKey usable as a JSON object key.
func (k ReactionKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText re-runs classification, so decoding a rendered key yields
// an equal value.
func (k *ReactionKey) UnmarshalText(text []byte) error {
	*k = ClassifyReaction(string(text))
	return nil
}
