package chatstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

func streamServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
	}))
}

type collected struct {
	mu     sync.Mutex
	text   string
	errors []string
	starts []string
	dones  []string
}

func (c *collected) handler() Handler {
	return Handler{
		OnStart: func(p string) { c.mu.Lock(); c.starts = append(c.starts, p); c.mu.Unlock() },
		OnDelta: func(tok string) { c.mu.Lock(); c.text += tok; c.mu.Unlock() },
		OnError: func(msg string) { c.mu.Lock(); c.errors = append(c.errors, msg); c.mu.Unlock() },
		OnDone:  func(p string) { c.mu.Lock(); c.dones = append(c.dones, p); c.mu.Unlock() },
	}
}

func TestStream_AssemblesDeltas(t *testing.T) {
	srv := streamServer(t, []string{
		"event: delta\ndata: {\"content\":\"Hi\"}\n\n",
		"event: delta\ndata: {\"content\":\" there\"}\n\n",
	})
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	var got collected
	err := client.Stream(context.Background(), Request{Message: "hello"}, got.handler())

	require.NoError(t, err)
	assert.Equal(t, "Hi there", got.text)
}

func TestStream_FullEventSequence(t *testing.T) {
	srv := streamServer(t, []string{
		"event: start\ndata: {\"conversationId\":\"c1\",\"userMsgId\":\"m1\"}\n\n",
		"event: delta\ndata: {\"delta\":\"Sure\"}\n\n",
		"event: done\ndata: {\"assistantMsgId\":\"m2\"}\n\n",
	})
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	var got collected
	require.NoError(t, client.Stream(context.Background(), Request{Message: "hello"}, got.handler()))

	require.Len(t, got.starts, 1)
	assert.Contains(t, got.starts[0], "c1")
	assert.Equal(t, "Sure", got.text)
	require.Len(t, got.dones, 1)
}

func TestStream_ContentKeyPriority(t *testing.T) {
	srv := streamServer(t, []string{
		"event: delta\ndata: {\"token\":\"from-token\"}\n\n",
		"event: delta\ndata: {\"content\":\"from-content\",\"delta\":\"ignored\"}\n\n",
		"event: delta\ndata: {\"text\":\"from-text\"}\n\n",
		"event: delta\ndata: {\"message\":\"from-message\"}\n\n",
	})
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	var got collected
	require.NoError(t, client.Stream(context.Background(), Request{Message: "x"}, got.handler()))

	assert.Equal(t, "from-tokenfrom-contentfrom-textfrom-message", got.text)
}

func TestStream_UnrecognizedEventWithContentField(t *testing.T) {
	srv := streamServer(t, []string{
		"event: chunk\ndata: {\"content\":\"still counts\"}\n\n",
	})
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	var got collected
	require.NoError(t, client.Stream(context.Background(), Request{Message: "x"}, got.handler()))

	assert.Equal(t, "still counts", got.text)
}

func TestStream_NonJSONPayloadIsLiteralToken(t *testing.T) {
	srv := streamServer(t, []string{
		"data: plain words\n\n",
		"data: [DONE]\n\n",
	})
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	var got collected
	require.NoError(t, client.Stream(context.Background(), Request{Message: "x"}, got.handler()))

	assert.Equal(t, "plain words", got.text)
}

func TestStream_ErrorEventDoesNotTerminateParsing(t *testing.T) {
	srv := streamServer(t, []string{
		"event: delta\ndata: {\"content\":\"before\"}\n\n",
		"event: error\ndata: {\"message\":\"upstream hiccup\"}\n\n",
		"event: delta\ndata: {\"content\":\" after\"}\n\n",
	})
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	var got collected
	require.NoError(t, client.Stream(context.Background(), Request{Message: "x"}, got.handler()))

	assert.Equal(t, "before after", got.text)
	require.Len(t, got.errors, 1)
	assert.Equal(t, "upstream hiccup", got.errors[0])
}

func TestStream_NonStreamResponseSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "assistant temporarily offline")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	var got collected
	err := client.Stream(context.Background(), Request{Message: "x"}, got.handler())

	require.NoError(t, err)
	assert.Equal(t, "assistant temporarily offline", got.text)
}

func TestStream_SendsGroundingContext(t *testing.T) {
	var received Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: done\ndata: {}\n\n")
	}))
	defer srv.Close()

	explain := entities.NewExplainPayload(entities.NormalizedPlace{ID: "g1", Name: "Cafe X", Rating: 4.5})
	client := NewClient(srv.URL, zerolog.Nop())
	err := client.Stream(context.Background(), Request{
		Message:    "why this one?",
		ClientMeta: ClientMeta{ResultExplanation: &explain, ResultSetSummary: "8 results"},
	}, Handler{})

	require.NoError(t, err)
	require.NotNil(t, received.ClientMeta.ResultExplanation)
	assert.Equal(t, "Cafe X", received.ClientMeta.ResultExplanation.Name)
	assert.Equal(t, "8 results", received.ClientMeta.ResultSetSummary)
}

func TestSession_TranscriptAssembly(t *testing.T) {
	srv := streamServer(t, []string{
		"event: start\ndata: {\"conversationId\":\"c1\"}\n\n",
		"event: delta\ndata: {\"content\":\"Hi\"}\n\n",
		"event: delta\ndata: {\"content\":\" there\"}\n\n",
		"event: done\ndata: {\"assistantMsgId\":\"m2\"}\n\n",
	})
	defer srv.Close()

	session := NewSession(NewClient(srv.URL, zerolog.Nop()), zerolog.Nop())
	require.NoError(t, session.Send(context.Background(), "hello"))

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, entities.RoleUser, transcript[0].Role)
	assert.Equal(t, "hello", transcript[0].Text)
	assert.Equal(t, entities.RoleAssistant, transcript[1].Role)
	assert.Equal(t, "Hi there", transcript[1].Text)
	assert.Equal(t, "c1", session.ConversationID())
	assert.Equal(t, StateCompleted, session.State())
}

func TestSession_ErrorEventAnnotatesTranscript(t *testing.T) {
	srv := streamServer(t, []string{
		"event: delta\ndata: {\"content\":\"partial\"}\n\n",
		"event: error\ndata: {\"message\":\"backend gone\"}\n\n",
	})
	defer srv.Close()

	session := NewSession(NewClient(srv.URL, zerolog.Nop()), zerolog.Nop())
	require.NoError(t, session.Send(context.Background(), "hello"))

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "partial [error: backend gone]", transcript[1].Text)
}

func TestSession_LastWriterWinsCancellation(t *testing.T) {
	firstConnected := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		if call == 1 {
			fmt.Fprint(w, "event: delta\ndata: {\"content\":\"first-early\"}\n\n")
			flusher.Flush()
			close(firstConnected)
			// Hold the stream open until the client aborts it, then try
			// to push more text that must never land.
			select {
			case <-r.Context().Done():
				return
			case <-release:
			}
			fmt.Fprint(w, "event: delta\ndata: {\"content\":\"first-late\"}\n\n")
			flusher.Flush()
			return
		}

		fmt.Fprint(w, "event: delta\ndata: {\"content\":\"second\"}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()
	defer close(release)

	session := NewSession(NewClient(srv.URL, zerolog.Nop()), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- session.Send(context.Background(), "first message") }()
	<-firstConnected

	// Wait for the first stream's early token to land before superseding it.
	require.Eventually(t, func() bool {
		tr := session.Transcript()
		return len(tr) == 2 && tr[1].Text == "first-early"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, session.Send(context.Background(), "second message"))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first stream did not unwind after cancellation")
	}

	transcript := session.Transcript()
	require.Len(t, transcript, 4)
	// The first stream's partial text is retained, nothing after it.
	assert.Equal(t, "first-early", transcript[1].Text)
	assert.Equal(t, "second", transcript[3].Text)
}

func TestSession_ExplicitCancelKeepsPartialText(t *testing.T) {
	connected := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "event: delta\ndata: {\"content\":\"partial answer\"}\n\n")
		flusher.Flush()
		close(connected)
		<-r.Context().Done()
	}))
	defer srv.Close()

	session := NewSession(NewClient(srv.URL, zerolog.Nop()), zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- session.Send(context.Background(), "hello") }()
	<-connected

	// Give the delta a moment to reach the transcript before cancelling.
	require.Eventually(t, func() bool {
		tr := session.Transcript()
		return len(tr) == 2 && tr[1].Text == "partial answer"
	}, 2*time.Second, 10*time.Millisecond)

	session.Cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not unwind after cancel")
	}

	assert.Equal(t, StateCancelled, session.State())
	assert.Equal(t, "partial answer", session.Transcript()[1].Text)
}
