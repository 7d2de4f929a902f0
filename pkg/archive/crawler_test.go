package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mkarchive/pkg/logger"
	"mkarchive/pkg/misskey"
	"mkarchive/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimelineClient replays scripted pages and records every request.
type fakeTimelineClient struct {
	pages    [][]misskey.Note
	requests []misskey.TimelineRequest
	err      error
}

func (f *fakeTimelineClient) ChannelTimeline(req misskey.TimelineRequest) ([]misskey.Note, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func note(id, userID string, createdAt time.Time) misskey.Note {
	return misskey.Note{
		ID:        misskey.NoteID(id),
		CreatedAt: createdAt,
		User:      misskey.PartialUser{ID: misskey.UserID(userID)},
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []json.RawMessage {
	t.Helper()
	var lines []json.RawMessage
	dec := json.NewDecoder(buf)
	for dec.More() {
		var raw json.RawMessage
		require.NoError(t, dec.Decode(&raw))
		lines = append(lines, raw)
	}
	return lines
}

func TestCrawlerRun(t *testing.T) {
	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("single page then empty", func(t *testing.T) {
		client := &fakeTimelineClient{
			pages: [][]misskey.Note{
				{
					note("9n3", "9u1", base.Add(2*time.Second)),
					note("9n1", "9u2", base), // oldest, out of page order
					note("9n2", "9u1", base.Add(time.Second)),
				},
				{}, // empty page terminates the crawl
			},
		}

		var records, progress bytes.Buffer
		sink := NewSink(&records, &progress)
		crawler := NewCrawler(client, sink, ratelimit.NewFixedDelay(0), logger.NewTestLogger(), "9chan1", nil, 60)

		require.NoError(t, crawler.Run())

		// Two requests: the page and the terminating empty fetch.
		require.Len(t, client.requests, 2)
		assert.Nil(t, client.requests[0].UntilID)
		assert.Nil(t, client.requests[0].SinceID)
		assert.Equal(t, 60, client.requests[0].Limit)

		// The second request is bounded by the earliest-created note of the
		// first page, regardless of its position in the page.
		require.NotNil(t, client.requests[1].UntilID)
		assert.Equal(t, misskey.NoteID("9n1"), *client.requests[1].UntilID)

		// One record line holding the whole page, in upstream order.
		lines := decodeLines(t, &records)
		require.Len(t, lines, 1)
		var page []misskey.Note
		require.NoError(t, json.Unmarshal(lines[0], &page))
		require.Len(t, page, 3)
		assert.Equal(t, misskey.NoteID("9n3"), page[0].ID)

		// Progress mentions the cursor note.
		progLines := decodeLines(t, &progress)
		require.Len(t, progLines, 1)
		var rec ProgressRecord
		require.NoError(t, json.Unmarshal(progLines[0], &rec))
		assert.Equal(t, ProgressKindLog, rec.Kind)
		assert.Equal(t, "proceeded by 9n1", rec.Message)

		assert.Equal(t, 1, crawler.Pages())
		require.NotNil(t, crawler.Cursor())
		assert.Equal(t, misskey.NoteID("9n1"), *crawler.Cursor())
		assert.Equal(t, []misskey.UserID{"9u1", "9u2"}, crawler.Users())
	})

	t.Run("full page followed by empty page", func(t *testing.T) {
		// Newest first, so the last note of the page is the oldest.
		full := make([]misskey.Note, 60)
		for i := range full {
			full[i] = note(
				"9n"+string(rune('A'+i%26))+string(rune('a'+i/26)),
				"9u1",
				base.Add(-time.Duration(i)*time.Second),
			)
		}
		client := &fakeTimelineClient{pages: [][]misskey.Note{full, {}}}

		var records, progress bytes.Buffer
		crawler := NewCrawler(client, NewSink(&records, &progress), ratelimit.NewFixedDelay(0), logger.NewTestLogger(), "9chan1", nil, 60)

		require.NoError(t, crawler.Run())
		require.Len(t, client.requests, 2)
		assert.Equal(t, full[59].ID, *client.requests[1].UntilID)
		assert.Len(t, decodeLines(t, &records), 1)
		assert.Equal(t, 1, crawler.Pages())
	})

	t.Run("multiple pages accumulate users", func(t *testing.T) {
		client := &fakeTimelineClient{
			pages: [][]misskey.Note{
				{note("9n4", "9u1", base.Add(3 * time.Second)), note("9n3", "9u2", base.Add(2*time.Second))},
				{note("9n2", "9u2", base.Add(time.Second)), note("9n1", "9u3", base)},
				{},
			},
		}

		var records, progress bytes.Buffer
		crawler := NewCrawler(client, NewSink(&records, &progress), ratelimit.NewFixedDelay(0), logger.NewTestLogger(), "9chan1", nil, 60)

		require.NoError(t, crawler.Run())

		require.Len(t, client.requests, 3)
		assert.Equal(t, misskey.NoteID("9n3"), *client.requests[1].UntilID)
		assert.Equal(t, misskey.NoteID("9n1"), *client.requests[2].UntilID)

		assert.Equal(t, 2, crawler.Pages())
		// Users are deduplicated across pages and sorted.
		assert.Equal(t, []misskey.UserID{"9u1", "9u2", "9u3"}, crawler.Users())
		assert.Len(t, decodeLines(t, &records), 2)
	})

	t.Run("empty channel", func(t *testing.T) {
		client := &fakeTimelineClient{}

		var records, progress bytes.Buffer
		crawler := NewCrawler(client, NewSink(&records, &progress), ratelimit.NewFixedDelay(0), logger.NewTestLogger(), "9chan1", nil, 60)

		require.NoError(t, crawler.Run())
		assert.Len(t, client.requests, 1)
		assert.Equal(t, 0, crawler.Pages())
		assert.Nil(t, crawler.Cursor())
		assert.Empty(t, crawler.Users())
		assert.Zero(t, records.Len())
	})

	t.Run("lower bound stays constant across requests", func(t *testing.T) {
		after := misskey.NoteID("9n0")
		client := &fakeTimelineClient{
			pages: [][]misskey.Note{
				{note("9n2", "9u1", base.Add(time.Second)), note("9n1", "9u1", base)},
				{},
			},
		}

		var records, progress bytes.Buffer
		crawler := NewCrawler(client, NewSink(&records, &progress), ratelimit.NewFixedDelay(0), logger.NewTestLogger(), "9chan1", &after, 60)

		require.NoError(t, crawler.Run())
		require.Len(t, client.requests, 2)
		for _, req := range client.requests {
			require.NotNil(t, req.SinceID)
			assert.Equal(t, after, *req.SinceID)
		}
	})

	t.Run("fetch failure is fatal", func(t *testing.T) {
		client := &fakeTimelineClient{err: errors.New("instance unavailable")}

		var records, progress bytes.Buffer
		log := logger.NewTestLogger()
		crawler := NewCrawler(client, NewSink(&records, &progress), ratelimit.NewFixedDelay(0), log, "9chan1", nil, 60)

		err := crawler.Run()
		require.Error(t, err)
		assert.Equal(t, "instance unavailable", err.Error())
		assert.True(t, log.HasError())
		assert.Zero(t, records.Len())
	})

	t.Run("zero limit falls back to default", func(t *testing.T) {
		client := &fakeTimelineClient{}

		var records, progress bytes.Buffer
		crawler := NewCrawler(client, NewSink(&records, &progress), ratelimit.NewFixedDelay(0), logger.NewTestLogger(), "9chan1", nil, 0)

		require.NoError(t, crawler.Run())
		require.Len(t, client.requests, 1)
		assert.Equal(t, misskey.DefaultPageLimit, client.requests[0].Limit)
	})

	t.Run("sleep notice emitted between pages when delay is set", func(t *testing.T) {
		client := &fakeTimelineClient{
			pages: [][]misskey.Note{
				{note("9n1", "9u1", base)},
				{},
			},
		}

		var records, progress bytes.Buffer
		crawler := NewCrawler(client, NewSink(&records, &progress), ratelimit.NewFixedDelay(1), logger.NewTestLogger(), "9chan1", nil, 60)

		require.NoError(t, crawler.Run())

		var kinds []string
		for _, raw := range decodeLines(t, &progress) {
			var rec ProgressRecord
			require.NoError(t, json.Unmarshal(raw, &rec))
			kinds = append(kinds, rec.Kind)
		}
		assert.Equal(t, []string{ProgressKindLog, ProgressKindSleep}, kinds)
	})
}
