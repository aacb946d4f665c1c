package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/repcoach/repcoach/internal/domain"
	"github.com/repcoach/repcoach/internal/guardrail"
)

func testPersonas() []domain.Persona {
	return []domain.Persona{
		{ID: "customerAutoAgent", Voice: "echo", Instructions: "be annoyed", Handoffs: []string{"customerHouseFireAgent"}},
		{ID: "customerHouseFireAgent", Voice: "echo", Instructions: "be shaken", Handoffs: []string{"customerAutoAgent"}},
	}
}

// fakeRuntime accepts one websocket session, checks the hello, confirms it,
// then plays back the scripted server events.
type fakeRuntime struct {
	t      *testing.T
	script []serverEvent

	mu    sync.Mutex
	hello clientEvent
}

func (f *fakeRuntime) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, "missing credential", http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			f.t.Errorf("accept failed: %v", err)
			return
		}
		ctx := r.Context()

		var hello clientEvent
		if err := wsjson.Read(ctx, conn, &hello); err != nil {
			f.t.Errorf("read hello failed: %v", err)
			return
		}
		f.mu.Lock()
		f.hello = hello
		f.mu.Unlock()

		if err := wsjson.Write(ctx, conn, serverEvent{Type: "session.created"}); err != nil {
			f.t.Errorf("write confirmation failed: %v", err)
			return
		}
		for _, event := range f.script {
			if err := wsjson.Write(ctx, conn, event); err != nil {
				return
			}
		}
		// Hold the connection open until the client hangs up.
		for {
			var discard clientEvent
			if err := wsjson.Read(ctx, conn, &discard); err != nil {
				return
			}
		}
	}
}

func (f *fakeRuntime) receivedHello() clientEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hello
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClientConnectSendsOrderedPersonasAndGuardrails(t *testing.T) {
	t.Parallel()

	runtime := &fakeRuntime{t: t}
	srv := httptest.NewServer(runtime.handler())
	defer srv.Close()

	client := NewClient(wsURL(srv), Handler{}, nil)
	defer client.Disconnect()

	err := client.Connect(context.Background(), ConnectOptions{
		Credential:       "ek_test",
		Personas:         testPersonas(),
		OutputGuardrails: []guardrail.Guardrail{guardrail.Moderation("State Farm")},
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	hello := runtime.receivedHello()
	if hello.Type != "session.create" {
		t.Errorf("hello type = %q", hello.Type)
	}
	if len(hello.Agents) != 2 || hello.Agents[0].Name != "customerAutoAgent" {
		t.Errorf("unexpected agent list: %+v", hello.Agents)
	}
	if len(hello.OutputGuardrails) != 1 {
		t.Errorf("expected 1 guardrail, got %d", len(hello.OutputGuardrails))
	}
}

func TestClientDeliversTranscriptAndHandoffEvents(t *testing.T) {
	t.Parallel()

	runtime := &fakeRuntime{t: t, script: []serverEvent{
		{Type: "conversation.item.created", ItemID: "item-1", Role: domain.RolePersona, Text: "my claim was denied!"},
		{Type: "agent.handoff", AgentName: "customerHouseFireAgent"},
	}}
	srv := httptest.NewServer(runtime.handler())
	defer srv.Close()

	var mu sync.Mutex
	var transcripts []TranscriptEvent
	var handoffs []string

	client := NewClient(wsURL(srv), Handler{
		OnTranscript: func(event TranscriptEvent) {
			mu.Lock()
			transcripts = append(transcripts, event)
			mu.Unlock()
		},
		OnHandoff: func(personaID string) {
			mu.Lock()
			handoffs = append(handoffs, personaID)
			mu.Unlock()
		},
	}, nil)
	defer client.Disconnect()

	if err := client.Connect(context.Background(), ConnectOptions{
		Credential: "ek_test",
		Personas:   testPersonas(),
	}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	waitFor(t, "transcript and handoff events", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transcripts) == 1 && len(handoffs) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if transcripts[0].Text != "my claim was denied!" || transcripts[0].Role != domain.RolePersona {
		t.Errorf("unexpected transcript event: %+v", transcripts[0])
	}
	if handoffs[0] != "customerHouseFireAgent" {
		t.Errorf("unexpected handoff target: %s", handoffs[0])
	}
}

func TestSendOperationsRequireConnection(t *testing.T) {
	t.Parallel()

	client := NewClient("ws://127.0.0.1:0", Handler{}, nil)

	if err := client.SendUserText(context.Background(), "hi"); err == nil {
		t.Error("expected ErrNotConnected from SendUserText")
	}
	if err := client.Mute(true); err == nil {
		t.Error("expected ErrNotConnected from Mute")
	}
	// Disconnect without a session must be a no-op.
	client.Disconnect()
}
