package misskey

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyReaction(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected ReactionKey
	}{
		{
			name:     "custom emoji",
			raw:      ":blob_cat@.:",
			expected: CustomReaction("blob_cat"),
		},
		{
			name:     "custom emoji with digits and dashes",
			raw:      ":ablobcat-wave2@.:",
			expected: CustomReaction("ablobcat-wave2"),
		},
		{
			name:     "remote custom emoji is not local",
			raw:      ":blob_cat@remote.example:",
			expected: ReactionKey{kind: ReactionUncategorized, value: ":blob_cat@remote.example:"},
		},
		{
			name:     "uppercase custom name rejected",
			raw:      ":BlobCat@.:",
			expected: ReactionKey{kind: ReactionUncategorized, value: ":BlobCat@.:"},
		},
		{
			name:     "unicode emoji",
			raw:      "\U0001F44D", // thumbs up
			expected: UnicodeReaction("\U0001F44D"),
		},
		{
			// U+2764 U+FE0F on the wire; the registry's canonical form
			// drops the variation selector.
			name:     "unicode emoji with variation selector",
			raw:      "❤️", // red heart
			expected: UnicodeReaction("❤"),
		},
		{
			name:     "digit keycap",
			raw:      "5⃣",
			expected: KeycapReaction(5),
		},
		{
			name:     "lone punctuation",
			raw:      "?",
			expected: ReactionKey{kind: ReactionPunctuation, value: "?"},
		},
		{
			name:     "lone symbol outside the registry",
			raw:      "→", // rightwards arrow, not an emoji
			expected: ReactionKey{kind: ReactionPunctuation, value: "→"},
		},
		{
			name:     "bare digit falls through",
			raw:      "5",
			expected: ReactionKey{kind: ReactionUncategorized, value: "5"},
		},
		{
			name:     "plain letter",
			raw:      "a",
			expected: ReactionKey{kind: ReactionUncategorized, value: "a"},
		},
		{
			name:     "arbitrary word",
			raw:      "hello",
			expected: ReactionKey{kind: ReactionUncategorized, value: "hello"},
		},
		{
			name:     "empty string",
			raw:      "",
			expected: ReactionKey{kind: ReactionUncategorized, value: ""},
		},
		{
			name:     "keycap without digit prefix",
			raw:      "a⃣",
			expected: ReactionKey{kind: ReactionUncategorized, value: "a⃣"},
		},
		{
			name:     "digit keycap with trailing content",
			raw:      "5⃣x",
			expected: ReactionKey{kind: ReactionUncategorized, value: "5⃣x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyReaction(tt.raw))
		})
	}
}

func TestClassifyReactionAllKeycapDigits(t *testing.T) {
	for d := 0; d <= 9; d++ {
		raw := fmt.Sprintf("%d⃣", d)
		key := ClassifyReaction(raw)
		assert.Equal(t, ReactionKeycapDigit, key.Kind(), "digit %d", d)
		assert.Equal(t, d, key.Digit(), "digit %d", d)
		assert.Equal(t, raw, key.String(), "digit %d", d)
	}
}

func TestKeycapWinsOverRegistry(t *testing.T) {
	// The registry also knows the bare digit+U+20E3 sequences; they must
	// still classify as keycap digits so rendered keycaps survive a decode.
	key := ClassifyReaction("5⃣")
	assert.Equal(t, KeycapReaction(5), key)
	assert.Equal(t, 5, key.Digit())
}

func TestUnicodeCanonicalForm(t *testing.T) {
	// The registry canonicalizes qualified sequences: U+2764 U+FE0F becomes
	// the bare U+2764. Rendering may differ from the wire input, but the
	// canonical form is a fixed point of classification.
	key := ClassifyReaction("❤️")
	assert.Equal(t, ReactionUnicode, key.Kind())
	assert.Equal(t, "❤", key.String())
	assert.Equal(t, key, ClassifyReaction(key.String()))
}

func TestReactionKeyRoundTrip(t *testing.T) {
	inputs := []string{
		":blob_cat@.:",
		"\U0001F44D",
		"❤️",
		"0⃣",
		"9⃣",
		"?",
		"→",
		"hello",
		"",
		":blob_cat@remote.example:",
	}

	for _, raw := range inputs {
		key := ClassifyReaction(raw)
		again := ClassifyReaction(key.String())
		assert.Equal(t, key, again, "input %q", raw)
	}
}

func TestReactionKeyAccessors(t *testing.T) {
	custom := CustomReaction("blob_cat")
	assert.Equal(t, ReactionCustom, custom.Kind())
	assert.Equal(t, "blob_cat", custom.Name())
	assert.Equal(t, -1, custom.Digit())
	assert.Equal(t, ":blob_cat@.:", custom.String())

	keycap := KeycapReaction(7)
	assert.Equal(t, ReactionKeycapDigit, keycap.Kind())
	assert.Equal(t, "", keycap.Name())
	assert.Equal(t, 7, keycap.Digit())
	assert.Equal(t, "7⃣", keycap.String())

	uni := UnicodeReaction("\U0001F44D")
	assert.Equal(t, ReactionUnicode, uni.Kind())
	assert.Equal(t, "\U0001F44D", uni.String())
}

func TestReactionKindString(t *testing.T) {
	assert.Equal(t, "custom", ReactionCustom.String())
	assert.Equal(t, "unicode", ReactionUnicode.String())
	assert.Equal(t, "keycap_digit", ReactionKeycapDigit.String())
	assert.Equal(t, "punctuation", ReactionPunctuation.String())
	assert.Equal(t, "uncategorized", ReactionUncategorized.String())
}

func TestReactionKeyAsMapKey(t *testing.T) {
	counts := map[ReactionKey]ReactionCount{
		CustomReaction("blob_cat"):    3,
		UnicodeReaction("\U0001F44D"): 1,
		KeycapReaction(5):             2,
	}

	data, err := json.Marshal(counts)
	require.NoError(t, err)

	var decoded map[ReactionKey]ReactionCount
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, counts, decoded)
}

func TestClassifyReactionIsPure(t *testing.T) {
	// Same input, same key, every time.
	for i := 0; i < 3; i++ {
		assert.Equal(t, ClassifyReaction(":blob_cat@.:"), ClassifyReaction(":blob_cat@.:"))
		assert.Equal(t, ClassifyReaction("5⃣"), ClassifyReaction("5⃣"))
	}
}
