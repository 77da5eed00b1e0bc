package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
)

// multicastBatchSize is the maximum number of recipients the Messaging
// API accepts in a single multicast call.
const multicastBatchSize = 500

// Client talks to the LINE Messaging API
type Client interface {
	// Push sends messages to a single user
	Push(ctx context.Context, to string, messages []TextMessage) error
	// Broadcast sends messages to all followers of the channel
	Broadcast(ctx context.Context, messages []TextMessage) error
	// Multicast sends messages to a set of users, batching recipients
	// as needed
	Multicast(ctx context.Context, to []string, messages []TextMessage) error
}

type client struct {
	httpClient   *http.Client
	apiURL       string
	channelToken string
	pool         pond.Pool
}

// NewClient creates a LINE Messaging API client. poolSize bounds the
// number of concurrent multicast batches.
func NewClient(apiURL, channelToken string, timeout time.Duration, poolSize int) Client {
	if poolSize <= 0 {
		poolSize = 4
	}

	return &client{
		httpClient:   &http.Client{Timeout: timeout},
		apiURL:       apiURL,
		channelToken: channelToken,
		pool:         pond.NewPool(poolSize),
	}
}

func (c *client) Push(ctx context.Context, to string, messages []TextMessage) error {
	return c.post(ctx, "/v2/bot/message/push", pushRequest{To: to, Messages: messages})
}

func (c *client) Broadcast(ctx context.Context, messages []TextMessage) error {
	return c.post(ctx, "/v2/bot/message/broadcast", broadcastRequest{Messages: messages})
}

func (c *client) Multicast(ctx context.Context, to []string, messages []TextMessage) error {
	if len(to) == 0 {
		return nil
	}

	group := c.pool.NewGroup()
	for start := 0; start < len(to); start += multicastBatchSize {
		end := min(start+multicastBatchSize, len(to))
		batch := to[start:end]
		group.SubmitErr(func() error {
			return c.post(ctx, "/v2/bot/message/multicast", struct {
				To       []string      `json:"to"`
				Messages []TextMessage `json:"messages"`
			}{To: batch, Messages: messages})
		})
	}

	return group.Wait()
}

// post sends a JSON body to the given Messaging API path, retrying
// transient failures with exponential backoff
func (c *client) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.channelToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		respBody, _ := io.ReadAll(resp.Body)
		err = fmt.Errorf("messaging API returned status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}

		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	return backoff.Retry(operation, b)
}
