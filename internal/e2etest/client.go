package e2etest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
)

// ErrUnexpectedStatus is returned when the server answers with another status than the caller expected.
var ErrUnexpectedStatus = errors.NewSentinel("unexpected status code")

// Client talks JSON to the investigation API and keeps the session cookie between requests.
type Client struct {
	client *http.Client
	url    string
}

func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client: &http.Client{Jar: jar}, //nolint:exhaustruct // this is better for readability
		url:    url,
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		resp, err := c.Get(ctx, urlPath)
		if err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// Do sends body encoded as JSON with method to urlPath. When the server answers with wantStatus, the response body
// is decoded into dst unless dst is nil.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any, wantStatus int, dst any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request", slog.String("path", urlPath))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != wantStatus {
		payload, _ := io.ReadAll(resp.Body)
		return errors.Wrap(ErrUnexpectedStatus, "do request",
			slog.String("method", method),
			slog.String("path", urlPath),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(payload)))
	}
	if dst == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode response body", slog.String("path", urlPath))
	}
	return nil
}

// QuickStart starts a game of the canonical case and returns the case summary and the new session id.
func (c *Client) QuickStart(ctx context.Context) (models.Summary, string, error) {
	var summary models.Summary
	if err := c.Do(ctx, http.MethodPost, "/api/scenarios/quickstart", nil, http.StatusOK, &summary); err != nil {
		return models.Summary{}, "", errors.Wrap(err, "quick-start")
	}
	var started struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Do(ctx, http.MethodPost, "/api/sessions", map[string]string{"case_id": summary.CaseID},
		http.StatusCreated, &started); err != nil {
		return models.Summary{}, "", errors.Wrap(err, "start session")
	}
	return summary, started.SessionID, nil
}

// ChatReply is the part of a chat response the smoke tests look at.
type ChatReply struct {
	PersonaID    string            `json:"persona_id"`
	Reply        string            `json:"reply"`
	RevealedClue *models.Clue      `json:"revealed_clue"`
	NewNotes     []models.AutoNote `json:"new_notes"`
}

// Chat sends message to personaID within sessionID.
func (c *Client) Chat(ctx context.Context, sessionID, personaID, message string) (ChatReply, error) {
	var reply ChatReply
	err := c.Do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/chat",
		map[string]string{"persona_id": personaID, "message": message}, http.StatusOK, &reply)
	if err != nil {
		return ChatReply{}, errors.Wrap(err, "chat")
	}
	return reply, nil
}

// Verdict is the outcome of an accusation as the API returns it.
type Verdict struct {
	Correct   bool                 `json:"correct"`
	Status    models.SessionStatus `json:"status"`
	Message   string               `json:"message"`
	AccusedID string               `json:"accused_id"`
}

// Accuse names personaID as the murderer in sessionID.
func (c *Client) Accuse(ctx context.Context, sessionID, personaID string) (Verdict, error) {
	var verdict Verdict
	err := c.Do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/accuse",
		map[string]string{"persona_id": personaID}, http.StatusOK, &verdict)
	if err != nil {
		return Verdict{}, errors.Wrap(err, "accuse")
	}
	return verdict, nil
}

// Progress reads the server-sent progress stream of progressID until it ends.
func (c *Client) Progress(ctx context.Context, progressID string) ([]models.ProgressUpdate, error) {
	resp, err := c.Get(ctx, "/api/progress/"+progressID)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to progress")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(ErrUnexpectedStatus, "subscribe to progress", slog.Int("status", resp.StatusCode))
	}

	var updates []models.ProgressUpdate
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var update models.ProgressUpdate
		if err = json.Unmarshal([]byte(data), &update); err != nil {
			return updates, errors.Wrap(err, "decode progress update")
		}
		updates = append(updates, update)
	}
	if err = scanner.Err(); err != nil {
		return updates, errors.Wrap(err, "read progress stream")
	}
	return updates, nil
}
