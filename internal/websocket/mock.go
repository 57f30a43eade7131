package websocket

import "sync"

// Recorder collects pushed messages instead of delivering them
type Recorder struct {
	mu       sync.Mutex
	Messages map[string][]*Message
}

func NewRecorder() *Recorder {
	return &Recorder{Messages: map[string][]*Message{}}
}

func (r *Recorder) SendToUser(userID string, message *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages[userID] = append(r.Messages[userID], message)
}

func (r *Recorder) NotifyTyping(userID, partnerID string, isTyping bool) {
	msgType := MessageTypeUserStopTyping
	if isTyping {
		msgType = MessageTypeUserTyping
	}
	r.SendToUser(partnerID, NewMessage(msgType, TypingPayload{UserID: userID, IsTyping: isTyping}))
}

// Types returns the message types pushed to userID in order
func (r *Recorder) Types(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Messages[userID]))
	for _, m := range r.Messages[userID] {
		out = append(out, m.Type)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = map[string][]*Message{}
}

var _ Pusher = (*Recorder)(nil)
