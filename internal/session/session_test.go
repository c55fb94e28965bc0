package session

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jude-e/backend/internal/model"
)

func TestNew_SeedsGreeting(t *testing.T) {
	s := New(model.RoleChild)

	assert.Equal(t, model.RoleChild, s.Role())
	assert.Equal(t, []Message{{Sender: SenderAssistant, Content: Greeting}}, s.Messages())
	assert.Empty(t, s.History())
	assert.False(t, s.Streaming())
}

func TestSession_StreamedTurn(t *testing.T) {
	s := New(model.RoleCaregiver)
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.AppendUser("What is AML?")
	s.BeginAssistant()
	assert.True(t, s.Streaming())
	s.ApplyDelta("Hel")
	s.ApplyDelta("lo")
	s.EndAssistant()

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Message{Sender: SenderUser, Content: "What is AML?"}, msgs[1])
	assert.Equal(t, Message{Sender: SenderAssistant, Content: "Hello"}, msgs[2])
	assert.False(t, s.Streaming())

	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	assert.Equal(t, []EventKind{EventAppended, EventAppended, EventDelta, EventDelta, EventCompleted}, kinds)
	assert.Equal(t, "Hel", events[2].Message.Content)
	assert.Equal(t, "Hello", events[3].Message.Content)
	assert.Equal(t, "lo", events[3].Delta)
	assert.Equal(t, 2, events[4].Index)
}

func TestSession_FailReplacesPartialAnswer(t *testing.T) {
	s := New(model.RoleCaregiver)
	s.AppendUser("q")
	s.BeginAssistant()
	s.ApplyDelta("half an ans")

	s.Fail(ErrorMessage)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Message{Sender: SenderAssistant, Content: ErrorMessage}, msgs[2])
	assert.False(t, s.Streaming())
}

func TestSession_FailWithoutPlaceholderAppends(t *testing.T) {
	s := New(model.RoleCaregiver)
	s.AppendUser("q")

	s.Fail(ErrorMessage)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Message{Sender: SenderAssistant, Content: ErrorMessage}, msgs[2])
}

func TestSession_DeltaWithoutPlaceholderIsIgnored(t *testing.T) {
	s := New(model.RoleCaregiver)
	s.ApplyDelta("stray")
	s.EndAssistant()
	assert.Len(t, s.Messages(), 1)
}

func TestSession_Unsubscribe(t *testing.T) {
	s := New(model.RoleCaregiver)
	calls := 0
	unsubscribe := s.Subscribe(func(Event) { calls++ })

	s.AppendUser("one")
	unsubscribe()
	s.AppendUser("two")

	assert.Equal(t, 1, calls)
}

func TestSession_MessagesReturnsCopy(t *testing.T) {
	s := New(model.RoleCaregiver)
	msgs := s.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, Greeting, s.Messages()[0].Content)
}

func TestSession_ObserverMayReadSession(t *testing.T) {
	s := New(model.RoleCaregiver)
	var seen int
	s.Subscribe(func(Event) { seen = len(s.Messages()) })

	s.AppendUser("q")
	assert.Equal(t, 2, seen)
}

func TestSession_ConcurrentReaders(t *testing.T) {
	s := New(model.RoleCaregiver)
	s.BeginAssistant()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Messages()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		s.ApplyDelta("x")
	}
	wg.Wait()
	s.EndAssistant()

	assert.Len(t, s.Messages()[1].Content, 100)
}

func TestSession_SetRole(t *testing.T) {
	s := New(model.RoleCaregiver)
	s.SetRole(model.RoleChild)
	assert.Equal(t, model.RoleChild, s.Role())
}

func TestMessage_WireFormat(t *testing.T) {
	body, err := json.Marshal(New(model.RoleCaregiver).Messages())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sender":"assistant","content":"Hello! How can I assist you today?"}]`, string(body))
}
