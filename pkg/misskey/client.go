package misskey

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mkarchive/pkg/logger"
)

// ErrorType classifies API client failures.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error. Parsing errors additionally carry the raw
// response body and the structural path at which decoding failed so the
// operator can diagnose unexpected payloads. Every failure is fatal to the
// run; the client performs no retries.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// Body is the raw response body, set on parsing failures.
	Body string
	// Path is the JSON structure path at which decoding failed, when known.
	Path string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("misskey %s error (code %d) at %s: %s", e.Type, e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("misskey %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Client is a Misskey API client. All endpoints are POST with a JSON body;
// authenticated requests carry the token in the body under the field "i".
type Client struct {
	httpClient *http.Client
	host       string
	token      Token
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a new API client for one instance.
func NewClient(host string, token Token, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		host:  host,
		token: token,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "mkarchive/1.0",
		},
		logger: log,
	}
}

// SetHeader sets a custom header for the client.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// withToken merges the credential into the request payload as the "i"
// field. The payload must marshal to a JSON object.
func (c *Client) withToken(body interface{}) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("request body is not a JSON object: %w", err)
	}

	tokenJSON, err := json.Marshal(c.token)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token: %w", err)
	}
	fields["i"] = tokenJSON

	return json.Marshal(fields)
}

// PostJSON performs one authenticated POST request and decodes the JSON
// response into target. On decode failure the returned *Error carries the
// raw body, the HTTP status, and the structural path of the failure.
func (c *Client) PostJSON(endpoint string, body, target interface{}) error {
	payload, err := c.withToken(body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: err.Error(),
		}
	}

	url := EndpointURL(c.host, endpoint)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending API request", map[string]interface{}{
		"endpoint": endpoint,
		"url":      url,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
			"duration": duration,
		})
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := c.checkResponseStatus(resp.StatusCode, endpoint); err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		path := decodePath(err)
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
			"error":    err.Error(),
			"path":     path,
			"raw":      string(respBody),
		})
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
			Body:    string(respBody),
			Path:    path,
		}
	}

	return nil
}

// decodePath extracts the structural position of a JSON decode failure,
// when the error type exposes one.
func decodePath(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			return typeErr.Field
		}
		return fmt.Sprintf("offset %d", typeErr.Offset)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("offset %d", syntaxErr.Offset)
	}
	return ""
}

// checkResponseStatus maps HTTP status codes to typed errors.
func (c *Client) checkResponseStatus(status int, endpoint string) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status":   status,
			"endpoint": endpoint,
		})
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "authentication failed",
			Code:    status,
		}
	case status == http.StatusNotFound:
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "resource not found",
			Code:    status,
		}
	case status == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status":   status,
			"endpoint": endpoint,
		})
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    status,
		}
	case status >= 500:
		return &Error{
			Type:    ErrorTypeServerError,
			Message: "server error",
			Code:    status,
		}
	case status >= 400:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", status),
			Code:    status,
		}
	default:
		return nil
	}
}

// ChannelTimeline fetches one page of a channel's timeline. The page is
// returned in upstream order; reaction keys are canonicalized during
// decoding.
func (c *Client) ChannelTimeline(req TimelineRequest) ([]Note, error) {
	c.logger.DebugWithFields("fetching timeline page", map[string]interface{}{
		"channel_id": req.ChannelID,
		"limit":      req.Limit,
	})

	var notes []Note
	if err := c.PostJSON(TimelineEndpoint, req, &notes); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("timeline page fetched", map[string]interface{}{
		"channel_id": req.ChannelID,
		"note_count": len(notes),
	})

	return notes, nil
}

// ShowUser resolves a single user id to a full profile record.
func (c *Client) ShowUser(id UserID) (*DetailedUser, error) {
	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"user_id": id,
	})

	var user DetailedUser
	if err := c.PostJSON(ShowUserEndpoint, ShowUserRequest{UserID: id}, &user); err != nil {
		return nil, err
	}

	return &user, nil
}
