package archive

import (
	"sort"

	"mkarchive/pkg/logger"
	"mkarchive/pkg/misskey"
	"mkarchive/pkg/ratelimit"
)

// TimelineClient is the subset of the API client the crawler needs.
type TimelineClient interface {
	ChannelTimeline(req misskey.TimelineRequest) ([]misskey.Note, error)
}

// Crawler walks a channel's timeline from newest to oldest, one page per
// request, emitting each page as a single JSON line and collecting the set
// of referenced author ids.
//
// The cursor only ever moves backward in time: after each page it is set to
// the id of that page's earliest-created note, and the next request uses it
// as the exclusive upper bound. An empty page is the sole termination
// signal.
type Crawler struct {
	client TimelineClient
	sink   *Sink
	pacer  ratelimit.Pacer
	logger logger.Logger

	channel misskey.ChannelID
	after   *misskey.NoteID
	limit   int

	cursor *misskey.NoteID
	users  map[misskey.UserID]struct{}
	pages  int
}

// NewCrawler creates a crawler for one channel. after is an optional
// operator-supplied lower bound; it stays constant across the whole run.
func NewCrawler(client TimelineClient, sink *Sink, pacer ratelimit.Pacer, log logger.Logger, channel misskey.ChannelID, after *misskey.NoteID, limit int) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	if limit <= 0 {
		limit = misskey.DefaultPageLimit
	}
	return &Crawler{
		client:  client,
		sink:    sink,
		pacer:   pacer,
		logger:  log,
		channel: channel,
		after:   after,
		limit:   limit,
		users:   make(map[misskey.UserID]struct{}),
	}
}

// Run crawls the channel until an empty page. Any fetch or emit failure is
// fatal and returned as-is; no partial page is salvaged.
func (c *Crawler) Run() error {
	c.logger.InfoWithFields("starting channel crawl", map[string]interface{}{
		"channel_id": c.channel,
		"page_limit": c.limit,
	})

	for {
		req := misskey.TimelineRequest{
			ChannelID: c.channel,
			Limit:     c.limit,
			SinceID:   c.after,
			UntilID:   c.cursor,
		}

		notes, err := c.client.ChannelTimeline(req)
		if err != nil {
			c.logger.WithError(err).WithField("channel_id", c.channel).Error("timeline fetch failed")
			return err
		}

		if len(notes) == 0 {
			c.logger.InfoWithFields("channel crawl finished", map[string]interface{}{
				"channel_id": c.channel,
				"pages":      c.pages,
				"users":      len(c.users),
			})
			return nil
		}

		// The cursor derives from creation time, not page position: the page
		// is emitted in upstream order, but the next upper bound is the
		// earliest-created note regardless of where it sits in the page.
		oldest := notes[0]
		for _, n := range notes[1:] {
			if n.CreatedAt.Before(oldest.CreatedAt) {
				oldest = n
			}
		}

		for _, n := range notes {
			c.users[n.User.ID] = struct{}{}
		}

		if err := c.sink.EmitRecord(notes); err != nil {
			return err
		}
		if err := c.sink.Progress(ProgressKindLog, "proceeded by %s", oldest.ID); err != nil {
			return err
		}

		cursor := oldest.ID
		c.cursor = &cursor
		c.pages++

		c.logger.DebugWithFields("page archived", map[string]interface{}{
			"channel_id": c.channel,
			"note_count": len(notes),
			"cursor":     cursor,
		})

		if delay := c.pacer.Delay(); delay > 0 {
			if err := c.sink.Progress(ProgressKindSleep, "sleeping %s before next page", delay); err != nil {
				return err
			}
		}
		c.pacer.Wait()
	}
}

// Users returns the author ids referenced by the emitted pages, sorted for
// deterministic output. The underlying set is unordered.
func (c *Crawler) Users() []misskey.UserID {
	ids := make([]misskey.UserID, 0, len(c.users))
	for id := range c.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Pages reports how many non-empty pages have been emitted.
func (c *Crawler) Pages() int { return c.pages }

// Cursor returns the current page boundary; nil until the first non-empty
// page has been processed.
func (c *Crawler) Cursor() *misskey.NoteID { return c.cursor }
