package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/repcoach/repcoach/internal/domain"
	"github.com/repcoach/repcoach/internal/guardrail"
)

// Ensure Client implements Transport.
var _ Transport = (*Client)(nil)

// Default timeout for the runtime to confirm a new session.
const defaultConfirmTimeout = 15 * time.Second

// ErrNotConnected is returned by send operations without an open session.
var ErrNotConnected = errors.New("transport not connected")

// clientEvent is the envelope for events sent to the runtime.
type clientEvent struct {
	Type             string            `json:"type"`
	Credential       string            `json:"credential,omitempty"`
	Agents           []runtimeAgent    `json:"agents,omitempty"`
	OutputGuardrails []json.RawMessage `json:"output_guardrails,omitempty"`
	Context          map[string]any    `json:"context,omitempty"`
	Item             *clientItem       `json:"item,omitempty"`
	Session          map[string]any    `json:"session,omitempty"`
	Muted            *bool             `json:"muted,omitempty"`
}

// runtimeAgent is the wire shape of a persona in the hello event.
type runtimeAgent struct {
	Name               string   `json:"name"`
	Voice              string   `json:"voice"`
	Instructions       string   `json:"instructions"`
	HandoffDescription string   `json:"handoff_description,omitempty"`
	Handoffs           []string `json:"handoffs"`
}

type clientItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []itemContent `json:"content"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// serverEvent is the envelope for events received from the runtime.
type serverEvent struct {
	Type      string `json:"type"`
	ItemID    string `json:"item_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Text      string `json:"text,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Client speaks the runtime's JSON event protocol over a websocket.
type Client struct {
	url     string
	handler Handler
	logger  *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	// readDone is closed when the read loop for the current connection
	// exits; Disconnect waits on it so callbacks stop before it returns.
	readDone chan struct{}
}

// NewClient creates a runtime client for the given websocket URL.
func NewClient(url string, handler Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{url: url, handler: handler, logger: logger}
}

// Connect dials the runtime, sends the session hello, and waits for the
// runtime's confirmation. On any failure the transport is left disconnected.
func (c *Client) Connect(ctx context.Context, opts ConnectOptions) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("transport already connected")
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+opts.Credential)

	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return fmt.Errorf("dial runtime: %w", err)
	}
	// Transcript payloads can carry long prompts.
	conn.SetReadLimit(1 << 20)

	hello := clientEvent{
		Type:             "session.create",
		Credential:       opts.Credential,
		Agents:           toRuntimeAgents(opts.Personas),
		OutputGuardrails: encodeGuardrails(opts.OutputGuardrails),
		Context:          opts.ExtraContext,
	}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "hello failed")
		return fmt.Errorf("send session hello: %w", err)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, defaultConfirmTimeout)
	defer cancel()

	var confirm serverEvent
	if err := wsjson.Read(confirmCtx, conn, &confirm); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "no session confirmation")
		return fmt.Errorf("await session confirmation: %w", err)
	}
	if confirm.Type != "session.created" {
		_ = conn.Close(websocket.StatusPolicyViolation, "unexpected confirmation")
		return fmt.Errorf("runtime rejected session: %s %s", confirm.Type, confirm.Error)
	}

	readDone := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.readDone = readDone
	c.mu.Unlock()

	go c.readLoop(conn, readDone)

	if c.handler.OnStatus != nil {
		c.handler.OnStatus(domain.StatusConnected)
	}
	return nil
}

// readLoop decodes server events until the connection drops.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	ctx := context.Background()

	for {
		var event serverEvent
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.logger.Debug("runtime connection closed", "status", status)
			} else {
				c.logger.Warn("runtime read failed", "error", err)
			}
			c.dropConn(conn)
			if c.handler.OnStatus != nil {
				c.handler.OnStatus(domain.StatusDisconnected)
			}
			return
		}
		c.dispatch(event)
	}
}

func (c *Client) dispatch(event serverEvent) {
	switch event.Type {
	case "conversation.item.created":
		if c.handler.OnTranscript != nil {
			c.handler.OnTranscript(TranscriptEvent{
				ItemID: event.ItemID,
				Role:   event.Role,
				Text:   event.Text,
			})
		}
	case "conversation.item.transcription.completed":
		if c.handler.OnTranscript != nil {
			c.handler.OnTranscript(TranscriptEvent{
				ItemID: event.ItemID,
				Role:   event.Role,
				Text:   event.Text,
				Final:  true,
			})
		}
	case "agent.handoff":
		if c.handler.OnHandoff != nil {
			c.handler.OnHandoff(event.AgentName)
		}
	case "guardrail.tripped":
		if c.handler.OnGuardrail != nil {
			c.handler.OnGuardrail(event.ItemID)
		}
	case "error":
		c.logger.Warn("runtime error event", "error", event.Error)
	default:
		c.logger.Debug("ignoring runtime event", "type", event.Type)
	}
}

// dropConn clears the stored connection if it is still the current one.
func (c *Client) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
		c.readDone = nil
	}
}

// Disconnect closes the session. Safe to call repeatedly and while
// disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	readDone := c.readDone
	c.conn = nil
	c.readDone = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(websocket.StatusNormalClosure, "session ended"); err != nil {
		c.logger.Debug("failed to close runtime connection", "error", err)
	}
	if readDone != nil {
		<-readDone
	}
}

func (c *Client) write(ctx context.Context, event clientEvent) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := wsjson.Write(ctx, conn, event); err != nil {
		return fmt.Errorf("send %s: %w", event.Type, err)
	}
	return nil
}

// SendEvent forwards a structured client event verbatim.
func (c *Client) SendEvent(ctx context.Context, event any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := wsjson.Write(ctx, conn, event); err != nil {
		return fmt.Errorf("send client event: %w", err)
	}
	return nil
}

// SendUserText injects a trainee text utterance and requests a response.
func (c *Client) SendUserText(ctx context.Context, text string) error {
	item := clientEvent{
		Type: "conversation.item.create",
		Item: &clientItem{
			Type:    "message",
			Role:    domain.RoleTrainee,
			Content: []itemContent{{Type: "input_text", Text: text}},
		},
	}
	if err := c.write(ctx, item); err != nil {
		return err
	}
	return c.write(ctx, clientEvent{Type: "response.create"})
}

// Interrupt cancels the persona's in-flight response.
func (c *Client) Interrupt(ctx context.Context) error {
	return c.write(ctx, clientEvent{Type: "response.cancel"})
}

// Mute toggles persona audio synthesis.
func (c *Client) Mute(muted bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.write(ctx, clientEvent{Type: "session.mute", Muted: &muted})
}

func toRuntimeAgents(personas []domain.Persona) []runtimeAgent {
	agents := make([]runtimeAgent, 0, len(personas))
	for _, p := range personas {
		agents = append(agents, runtimeAgent{
			Name:               p.ID,
			Voice:              p.Voice,
			Instructions:       p.Instructions,
			HandoffDescription: p.HandoffDescription,
			Handoffs:           p.Handoffs,
		})
	}
	return agents
}

func encodeGuardrails(guardrails []guardrail.Guardrail) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(guardrails))
	for _, g := range guardrails {
		raw, err := json.Marshal(g)
		if err != nil {
			slog.Warn("failed to encode guardrail, skipping", "error", err)
			continue
		}
		out = append(out, raw)
	}
	return out
}
