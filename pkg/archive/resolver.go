package archive

import (
	"mkarchive/pkg/logger"
	"mkarchive/pkg/misskey"
	"mkarchive/pkg/ratelimit"
)

// ProfileClient is the subset of the API client the resolver needs.
type ProfileClient interface {
	ShowUser(id misskey.UserID) (*misskey.DetailedUser, error)
}

// Resolver fetches full profiles for an explicit list of user ids, one
// request at a time. The input list is taken as-is: no deduplication, no
// reordering.
type Resolver struct {
	client ProfileClient
	sink   *Sink
	pacer  ratelimit.Pacer
	logger logger.Logger
}

// NewResolver creates a profile resolver.
func NewResolver(client ProfileClient, sink *Sink, pacer ratelimit.Pacer, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{
		client: client,
		sink:   sink,
		pacer:  pacer,
		logger: log,
	}
}

// Run resolves each id in order, emitting one profile record per line. The
// configured delay applies after every request, the last one included. Any
// failure aborts the remaining ids.
func (r *Resolver) Run(ids []misskey.UserID) error {
	r.logger.InfoWithFields("starting user resolution", map[string]interface{}{
		"user_count": len(ids),
	})

	for _, id := range ids {
		user, err := r.client.ShowUser(id)
		if err != nil {
			r.logger.WithError(err).WithField("user_id", id).Error("profile fetch failed")
			return err
		}

		if err := r.sink.EmitRecord(user); err != nil {
			return err
		}
		if err := r.sink.Progress(ProgressKindLog, "resolved %s", id); err != nil {
			return err
		}

		if delay := r.pacer.Delay(); delay > 0 {
			if err := r.sink.Progress(ProgressKindSleep, "sleeping %s before next request", delay); err != nil {
				return err
			}
		}
		r.pacer.Wait()
	}

	r.logger.InfoWithFields("user resolution finished", map[string]interface{}{
		"user_count": len(ids),
	})
	return nil
}
