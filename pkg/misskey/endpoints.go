package misskey

import "fmt"

const (
	// TimelineEndpoint is the channel timeline page endpoint.
	TimelineEndpoint = "/api/channels/timeline"

	// ShowUserEndpoint resolves a single user id to a full profile.
	ShowUserEndpoint = "/api/users/show"

	// DefaultPageLimit is the page size requested by the crawler.
	DefaultPageLimit = 60
)

// EndpointURL builds the absolute URL for an API endpoint on the given
// instance host. Hosts are bare hostnames; the API is HTTPS only.
func EndpointURL(host, endpoint string) string {
	return fmt.Sprintf("https://%s%s", host, endpoint)
}
