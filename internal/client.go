package internal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SessionAPI is the backend surface the orchestrator needs for session
// management. Implemented by APIClient; tests substitute a stub.
type SessionAPI interface {
	ListSessions(ctx context.Context, projectID, cursor string) (SessionPage, error)
	SessionHistory(ctx context.Context, projectID, sessionID string) (*HistoryResponse, error)
	RenameSession(ctx context.Context, projectID, sessionID, name string) error
	DeleteSession(ctx context.Context, projectID, sessionID string) error
}

// StreamFunc receives inbound stream events during an agent invocation.
type StreamFunc func(StreamEvent)

// AgentInvoker issues one conversational turn against the agent runtime,
// delivering stream events via callback before returning the final
// assistant text.
type AgentInvoker interface {
	Invoke(ctx context.Context, blocks []ContentBlock, sessionID, projectID string,
		onEvent StreamFunc, agentID, runtimeOverride string) (string, error)
}

// APIClient talks to the document-chat backend over HTTP.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAPIClient creates a client for the given base URL. The bearer token
// may be empty for unauthenticated deployments.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ListSessions fetches one page of the project's session listing.
func (c *APIClient) ListSessions(ctx context.Context, projectID, cursor string) (SessionPage, error) {
	path := fmt.Sprintf("chat/projects/%s/sessions", projectID)
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}
	var page SessionPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return SessionPage{}, err
	}
	return page, nil
}

// SessionHistory fetches the persisted transcript of one session.
func (c *APIClient) SessionHistory(ctx context.Context, projectID, sessionID string) (*HistoryResponse, error) {
	path := fmt.Sprintf("chat/projects/%s/sessions/%s", projectID, sessionID)
	var resp HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, &HistoryError{SessionID: sessionID, Err: err}
	}
	return &resp, nil
}

// RenameSession updates a session's display name.
func (c *APIClient) RenameSession(ctx context.Context, projectID, sessionID, name string) error {
	path := fmt.Sprintf("chat/projects/%s/sessions/%s", projectID, sessionID)
	body := map[string]string{"session_name": name}
	return c.doJSON(ctx, http.MethodPatch, path, body, nil)
}

// DeleteSession removes a session server-side.
func (c *APIClient) DeleteSession(ctx context.Context, projectID, sessionID string) error {
	path := fmt.Sprintf("chat/projects/%s/sessions/%s", projectID, sessionID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return &TransportError{Path: path, Op: strings.ToLower(method), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Path: path, Op: strings.ToLower(method), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			Path: path,
			Op:   strings.ToLower(method),
			Err:  fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Source: "api", Key: path, Err: err}
	}
	return nil
}

// HTTPAgentInvoker implements AgentInvoker against the backend's streaming
// invoke endpoint. Events arrive as server-sent-event data lines, each a
// JSON-encoded StreamEvent; the complete event carries the final response
// text.
type HTTPAgentInvoker struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPAgentInvoker creates an invoker for the given base URL.
func NewHTTPAgentInvoker(baseURL, token string) *HTTPAgentInvoker {
	return &HTTPAgentInvoker{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Streaming turns can run long; no overall timeout, cancellation
		// comes from the context.
		client: &http.Client{},
	}
}

type invokeRequest struct {
	SessionID       string         `json:"session_id"`
	ProjectID       string         `json:"project_id"`
	Content         []ContentBlock `json:"content"`
	AgentID         string         `json:"agent_id,omitempty"`
	RuntimeOverride string         `json:"runtime_override,omitempty"`
}

// Invoke issues one turn and folds the event stream through onEvent. The
// final response text is taken from the complete event; a stream that ends
// without one returns the concatenated text events as a fallback.
func (inv *HTTPAgentInvoker) Invoke(ctx context.Context, blocks []ContentBlock, sessionID, projectID string,
	onEvent StreamFunc, agentID, runtimeOverride string) (string, error) {

	payload := invokeRequest{
		SessionID:       sessionID,
		ProjectID:       projectID,
		Content:         blocks,
		AgentID:         agentID,
		RuntimeOverride: runtimeOverride,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inv.baseURL+"/chat/invoke", bytes.NewReader(raw))
	if err != nil {
		return "", &TransportError{Path: "chat/invoke", Op: "post", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if inv.token != "" {
		req.Header.Set("Authorization", "Bearer "+inv.token)
	}

	resp, err := inv.client.Do(req)
	if err != nil {
		return "", &TransportError{Path: "chat/invoke", Op: "post", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{
			Path: "chat/invoke",
			Op:   "post",
			Err:  fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var finalText string
	var fallback strings.Builder
	sawComplete := false

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			LogDebug("Skipping undecodable stream line: %v", err)
			continue
		}

		if ev.Type == EventText {
			fallback.WriteString(ev.Text)
		}
		if ev.Type == EventComplete {
			finalText = ev.Text
			sawComplete = true
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &TransportError{Path: "chat/invoke", Op: "post", Err: err}
	}

	if !sawComplete {
		return fallback.String(), nil
	}
	return finalText, nil
}
