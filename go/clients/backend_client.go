package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Command is an administrative command understood by the game backend.
type Command string

const (
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandSetWord Command = "set-word"
)

// ErrBackendUnreachable marks a transport-level failure talking to the
// backend admin endpoint.
var ErrBackendUnreachable = errors.New("backend unreachable")

// BackendError reports a non-success status from the backend admin endpoint.
// The status and body are kept verbatim so a proxying layer can forward them.
type BackendError struct {
	Command    Command
	StatusCode int
	Body       []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend admin %s returned status %d: %s", e.Command, e.StatusCode, e.Body)
}

type setWordBody struct {
	Word string `json:"word"`
}

// AdminClient sends administrative commands to the game backend over HTTP.
// It never retries on its own; callers decide whether a failure matters.
type AdminClient struct {
	baseURL string
	client  *http.Client
}

func NewAdminClient(baseURL string, timeout time.Duration) *AdminClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AdminClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts a command to POST <backend>/admin/<command> and returns the raw
// response body. A nil payload is sent as an empty JSON object. Transport
// failures wrap ErrBackendUnreachable; non-2xx responses return *BackendError.
func (c *AdminClient) Send(ctx context.Context, cmd Command, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", cmd, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/"+string(cmd), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", cmd, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBackendUnreachable, cmd, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrBackendUnreachable, cmd, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{Command: cmd, StatusCode: resp.StatusCode, Body: respBody}
	}

	return respBody, nil
}

// Start opens a round for the currently set word.
func (c *AdminClient) Start(ctx context.Context) error {
	_, err := c.Send(ctx, CommandStart, nil)
	return err
}

// Stop closes the current round.
func (c *AdminClient) Stop(ctx context.Context) error {
	_, err := c.Send(ctx, CommandStop, nil)
	return err
}

// SetWord tells the backend which word the next round is played against.
func (c *AdminClient) SetWord(ctx context.Context, word string) error {
	_, err := c.Send(ctx, CommandSetWord, setWordBody{Word: word})
	return err
}
