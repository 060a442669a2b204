package testutil

import (
	"fmt"

	"github.com/roach88/chatlog/internal/chat"
)

// MessageOption customizes a message built by NewMessage.
type MessageOption func(*chat.Message)

// NewMessage returns a squad message from a fixed sender at the given
// timestamp.
func NewMessage(ts int64, text string, opts ...MessageOption) chat.Message {
	m := chat.Message{
		ChannelID:     1,
		Kind:          chat.Squad,
		Subgroup:      1,
		Timestamp:     ts,
		AccountName:   ":Tester.1234",
		CharacterName: "Test Character",
		Text:          text,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// WithKind sets the channel kind.
func WithKind(k chat.ChannelKind) MessageOption {
	return func(m *chat.Message) { m.Kind = k }
}

// WithSender sets the account and character names.
func WithSender(account, character string) MessageOption {
	return func(m *chat.Message) {
		m.AccountName = account
		m.CharacterName = character
	}
}

// WithBroadcast marks the message as a broadcast.
func WithBroadcast() MessageOption {
	return func(m *chat.Message) { m.IsBroadcast = true }
}

// Sequence returns n messages with timestamps start, start+1, ... and
// texts "<prefix> 0", "<prefix> 1", ...
func Sequence(n int, start int64, prefix string, opts ...MessageOption) []chat.Message {
	out := make([]chat.Message, n)
	for i := range out {
		out[i] = NewMessage(start+int64(i), fmt.Sprintf("%s %d", prefix, i), opts...)
	}
	return out
}
