package gerrit

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sonyxperiadev/gogerrit/internal/events"
)

// fakeSession implements Session for facade tests. Each RunCommand call
// records the command and serves the next canned response.
type fakeSession struct {
	mu        sync.Mutex
	commands  []string
	responses []string
	streams   []*fakeHandle
}

func (s *fakeSession) RunCommand(_ context.Context, command string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	response := ""
	if len(s.responses) > 0 {
		response = s.responses[0]
		s.responses = s.responses[1:]
	}
	return io.NopCloser(strings.NewReader(response)), nil
}

func (s *fakeSession) OpenStream(_ context.Context, command string) (StreamHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	handle := newFakeHandle()
	s.streams = append(s.streams, handle)
	return handle, nil
}

func (s *fakeSession) RemoteVersion(context.Context) (string, error) {
	return "2.16.28", nil
}

func (s *fakeSession) RemoteInfo(context.Context) (string, string, error) {
	return "reviewer", "2.16.28", nil
}

func (s *fakeSession) commandCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands)
}

func (s *fakeSession) lastCommand() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.commands) == 0 {
		return ""
	}
	return s.commands[len(s.commands)-1]
}

// fakeHandle is a channel-backed StreamHandle. ReadLine blocks until a
// line is pushed, the line channel is closed (EOF), or Close is called.
type fakeHandle struct {
	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		lines:  make(chan string, 64),
		closed: make(chan struct{}),
	}
}

func (h *fakeHandle) ReadLine() (string, error) {
	select {
	case line, ok := <-h.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-h.closed:
		return "", errors.New("session closed")
	}
}

func (h *fakeHandle) Close() error {
	h.closeOnce.Do(func() { close(h.closed) })
	return nil
}

func TestClient_VersionAndInfo(t *testing.T) {
	client := New(&fakeSession{})
	ctx := context.Background()

	version, err := client.Version(ctx)
	if err != nil || version != "2.16.28" {
		t.Errorf("Version = %q, %v", version, err)
	}

	username, version, err := client.Info(ctx)
	if err != nil || username != "reviewer" || version != "2.16.28" {
		t.Errorf("Info = %q, %q, %v", username, version, err)
	}
}

func TestClient_RunCommand(t *testing.T) {
	session := &fakeSession{responses: []string{"ok\n"}}
	client := New(session)

	out, err := client.RunCommand(context.Background(), "ls-projects")
	if err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}
	defer out.Close()

	data, _ := io.ReadAll(out)
	if string(data) != "ok\n" {
		t.Errorf("output = %q", data)
	}
	if got := session.lastCommand(); got != "ls-projects" {
		t.Errorf("command = %q", got)
	}
}

func TestClient_RunCommandRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"embedded newline", "version\nls-projects"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session := &fakeSession{}
			client := New(session)

			_, err := client.RunCommand(context.Background(), tc.command)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if session.commandCount() != 0 {
				t.Error("transport was contacted for invalid input")
			}
		})
	}
}

func TestClient_Query(t *testing.T) {
	response := `{"project":"a","branch":"main","number":"1","subject":"first"}
{"project":"b","branch":"main","number":"2","subject":"second"}
{"type":"stats","rowCount":2}
`
	session := &fakeSession{responses: []string{response}}
	client := New(session)

	results, err := client.Query(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Project != "a" || results[1].Project != "b" {
		t.Errorf("results out of order: %q, %q", results[0].Project, results[1].Project)
	}

	command := session.lastCommand()
	want := "query --current-patch-set --all-approvals --format JSON --commit-message 'deadbeef'"
	if command != want {
		t.Errorf("command = %q, want %q", command, want)
	}
}

func TestClient_QueryNumericNumbers(t *testing.T) {
	response := `{"project":"a","branch":"main","number":3,"subject":"first","currentPatchSet":{"number":2,"revision":"cafe"}}
{"type":"stats","rowCount":1}
`
	session := &fakeSession{responses: []string{response}}
	client := New(session)

	results, err := client.Query(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("Query failed on numeric number field: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Number != "3" {
		t.Errorf("Number = %q, want %q", results[0].Number, "3")
	}
	if results[0].CurrentPatchset == nil || results[0].CurrentPatchset.Number != "2" {
		t.Errorf("CurrentPatchset.Number not decoded: %+v", results[0].CurrentPatchset)
	}
}

func TestClient_QueryServerError(t *testing.T) {
	session := &fakeSession{responses: []string{`{"type":"error","message":"bad query"}` + "\n"}}
	client := New(session)

	_, err := client.Query(context.Background(), "term")
	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected *QueryError, got %v", err)
	}
	if queryErr.Message != "bad query" {
		t.Errorf("Message = %q", queryErr.Message)
	}
}

func TestClient_QueryMalformedLineFailsWhole(t *testing.T) {
	response := `{"project":"a"}
this is not json
{"project":"b"}
`
	session := &fakeSession{responses: []string{response}}
	client := New(session)

	results, err := client.Query(context.Background(), "term")
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	if results != nil {
		t.Errorf("expected no partial results, got %d", len(results))
	}
}

func TestClient_QueryRejectsBadTerm(t *testing.T) {
	session := &fakeSession{}
	client := New(session)

	_, err := client.Query(context.Background(), "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if session.commandCount() != 0 {
		t.Error("transport was contacted for invalid term")
	}
}

func TestClient_QueryQuotesTerm(t *testing.T) {
	session := &fakeSession{responses: []string{""}}
	client := New(session)

	term := `message with spaces and a 'quote'`
	if _, err := client.Query(context.Background(), term); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	command := session.lastCommand()
	if !strings.HasSuffix(command, `'message with spaces and a '\''quote'\'''`) {
		t.Errorf("term not quoted: %q", command)
	}
}

func TestClient_PutGetEventOrder(t *testing.T) {
	client := New(&fakeSession{})

	for _, ref := range []string{"refs/heads/a", "refs/heads/b", "refs/heads/c"} {
		data := `{"type":"ref-updated","refUpdate":{"refName":"` + ref + `"}}`
		if err := client.PutEvent([]byte(data)); err != nil {
			t.Fatalf("PutEvent(%s) failed: %v", ref, err)
		}
	}

	for _, want := range []string{"refs/heads/a", "refs/heads/b", "refs/heads/c"} {
		event := client.GetEvent(false, 0)
		if event == nil {
			t.Fatalf("GetEvent returned nil, want %s", want)
		}
		ru := event.(*events.RefUpdatedEvent)
		if ru.RefUpdate.RefName != want {
			t.Errorf("got %q, want %q", ru.RefUpdate.RefName, want)
		}
	}
	if event := client.GetEvent(false, 0); event != nil {
		t.Errorf("expected drained queue, got %v", event)
	}
}

func TestClient_PutEventQueueFull(t *testing.T) {
	client := New(&fakeSession{}, WithQueueCapacity(1))

	data := []byte(`{"type":"ref-updated","refUpdate":{"refName":"refs/heads/x"}}`)
	if err := client.PutEvent(data); err != nil {
		t.Fatalf("first PutEvent failed: %v", err)
	}

	err := client.PutEvent(data)
	var eventErr *EventError
	if !errors.As(err, &eventErr) {
		t.Fatalf("expected *EventError, got %v", err)
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull cause, got %v", err)
	}
}

func TestClient_PutEventFactoryFailure(t *testing.T) {
	client := New(&fakeSession{})

	err := client.PutEvent([]byte(`{"project":"no type here"}`))
	var eventErr *EventError
	if !errors.As(err, &eventErr) {
		t.Fatalf("expected *EventError, got %v", err)
	}
	if !errors.Is(err, events.ErrMissingType) {
		t.Fatalf("expected ErrMissingType cause, got %v", err)
	}
}

func TestClient_StartEventStreamIdempotent(t *testing.T) {
	session := &fakeSession{}
	client := New(session)
	defer client.StopEventStream()

	ctx := context.Background()
	if err := client.StartEventStream(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := client.StartEventStream(ctx); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	session.mu.Lock()
	streams := len(session.streams)
	session.mu.Unlock()
	if streams != 1 {
		t.Errorf("opened %d streams, want 1", streams)
	}
}

func TestClient_StopEventStreamWhenInactive(t *testing.T) {
	client := New(&fakeSession{})
	// Must be a no-op, not a panic or a hang.
	client.StopEventStream()
	client.StopEventStream()
}

func TestClient_StopEventStreamClearsQueue(t *testing.T) {
	session := &fakeSession{}
	client := New(session)

	if err := client.StartEventStream(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	session.mu.Lock()
	handle := session.streams[0]
	session.mu.Unlock()
	handle.lines <- `{"type":"ref-updated","refUpdate":{"refName":"refs/heads/a"}}`

	// Wait for the reader to deliver before stopping.
	if event := client.GetEvent(true, 2*time.Second); event == nil {
		t.Fatal("event never delivered")
	}
	handle.lines <- `{"type":"ref-updated","refUpdate":{"refName":"refs/heads/b"}}`
	for client.queue.Len() == 0 {
		time.Sleep(time.Millisecond)
	}

	client.StopEventStream()
	if event := client.GetEvent(false, 0); event != nil {
		t.Errorf("queue not cleared on stop, got %v", event)
	}
}

func TestClient_GetEventBlockingTimeout(t *testing.T) {
	client := New(&fakeSession{})

	start := time.Now()
	event := client.GetEvent(true, 50*time.Millisecond)
	elapsed := time.Since(start)

	if event != nil {
		t.Fatalf("expected nil, got %v", event)
	}
	if elapsed < 40*time.Millisecond || elapsed > 2*time.Second {
		t.Errorf("waited %v, expected ~50ms", elapsed)
	}
}
