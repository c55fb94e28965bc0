// Package session holds the client-side state of one conversation: the ordered
// messages and the role chosen for it.
package session

import (
	"slices"
	"sync"

	"jude-e/backend/internal/model"
)

// Greeting is the assistant message every new session starts with.
const Greeting = "Hello! How can I assist you today?"

// ErrorMessage is shown in place of an answer when a turn fails.
const ErrorMessage = "Error retrieving response"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Message struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

type EventKind int

const (
	// EventAppended fires when a message is added.
	EventAppended EventKind = iota
	// EventDelta fires when streamed text is applied to the assistant message.
	EventDelta
	// EventCompleted fires when the assistant message is finished.
	EventCompleted
	// EventFailed fires when a turn ends with the error message.
	EventFailed
)

// Event describes one change. Message is a snapshot taken after the change.
type Event struct {
	Kind    EventKind
	Index   int
	Message Message
	Delta   string
}

// Session is safe for concurrent use. Observers are called synchronously,
// outside the lock, in subscription order.
type Session struct {
	mu        sync.Mutex
	role      model.Role
	messages  []Message
	streaming int // index of the assistant message being filled, or -1
	observers map[int]func(Event)
	nextID    int
}

// New starts a session with the fixed greeting.
func New(role model.Role) *Session {
	return &Session{
		role:      role,
		messages:  []Message{{Sender: SenderAssistant, Content: Greeting}},
		streaming: -1,
		observers: make(map[int]func(Event)),
	}
}

func (s *Session) Role() model.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// SetRole changes the audience for subsequent turns.
func (s *Session) SetRole(role model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// History returns the conversation without the greeting, oldest first.
func (s *Session) History() []Message {
	msgs := s.Messages()
	if len(msgs) > 0 && msgs[0].Sender == SenderAssistant && msgs[0].Content == Greeting {
		return msgs[1:]
	}
	return msgs
}

// Streaming reports whether an assistant message is being filled.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming >= 0
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Session) AppendUser(content string) {
	s.mu.Lock()
	s.messages = append(s.messages, Message{Sender: SenderUser, Content: content})
	ev := Event{Kind: EventAppended, Index: len(s.messages) - 1, Message: s.messages[len(s.messages)-1]}
	s.mu.Unlock()
	s.publish(ev)
}

// BeginAssistant appends the empty assistant placeholder that deltas fill in.
func (s *Session) BeginAssistant() {
	s.mu.Lock()
	s.messages = append(s.messages, Message{Sender: SenderAssistant})
	s.streaming = len(s.messages) - 1
	ev := Event{Kind: EventAppended, Index: s.streaming, Message: s.messages[s.streaming]}
	s.mu.Unlock()
	s.publish(ev)
}

// ApplyDelta appends text to the in-progress assistant message. With nothing
// in progress it is ignored.
func (s *Session) ApplyDelta(delta string) {
	s.mu.Lock()
	if s.streaming < 0 || delta == "" {
		s.mu.Unlock()
		return
	}
	s.messages[s.streaming].Content += delta
	ev := Event{Kind: EventDelta, Index: s.streaming, Message: s.messages[s.streaming], Delta: delta}
	s.mu.Unlock()
	s.publish(ev)
}

// EndAssistant marks the in-progress assistant message complete.
func (s *Session) EndAssistant() {
	s.mu.Lock()
	if s.streaming < 0 {
		s.mu.Unlock()
		return
	}
	ev := Event{Kind: EventCompleted, Index: s.streaming, Message: s.messages[s.streaming]}
	s.streaming = -1
	s.mu.Unlock()
	s.publish(ev)
}

// Fail ends the turn with message. Text already streamed is replaced; with no
// placeholder in progress a new assistant message is appended.
func (s *Session) Fail(message string) {
	s.mu.Lock()
	idx := s.streaming
	if idx >= 0 {
		s.messages[idx].Content = message
	} else {
		s.messages = append(s.messages, Message{Sender: SenderAssistant, Content: message})
		idx = len(s.messages) - 1
	}
	s.streaming = -1
	ev := Event{Kind: EventFailed, Index: idx, Message: s.messages[idx]}
	s.mu.Unlock()
	s.publish(ev)
}

func (s *Session) publish(ev Event) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
