package chat

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUnknownChannelKind is returned by ParseChannelKind for unrecognized names.
var ErrUnknownChannelKind = errors.New("unknown channel kind")

// ChannelKind identifies the chat channel a message was sent on.
type ChannelKind int

const (
	// Party is the five-person party channel.
	Party ChannelKind = iota
	// Squad is the squad channel, optionally scoped to a subgroup.
	Squad
	// Reserved is a channel type the host reserves but does not use.
	Reserved
	// Invalid marks a message whose channel could not be determined.
	Invalid
)

var channelKindNames = [...]string{
	Party:    "party",
	Squad:    "squad",
	Reserved: "reserved",
	Invalid:  "invalid",
}

// String returns the storage name of the channel kind.
func (k ChannelKind) String() string {
	if k < 0 || int(k) >= len(channelKindNames) {
		return channelKindNames[Invalid]
	}
	return channelKindNames[k]
}

// ParseChannelKind parses a storage name, case-insensitively.
func ParseChannelKind(s string) (ChannelKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range channelKindNames {
		if n == name {
			return ChannelKind(i), nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknownChannelKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ChannelKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChannelKind) UnmarshalText(text []byte) error {
	parsed, err := ParseChannelKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Message is a single chat line as received from the host. Messages are
// append-only: once written they are never updated or deleted.
type Message struct {
	ChannelID     uint32      `json:"channel_id" yaml:"channel_id"`
	Kind          ChannelKind `json:"kind" yaml:"kind"`
	Subgroup      uint8       `json:"subgroup" yaml:"subgroup"`
	IsBroadcast   bool        `json:"is_broadcast" yaml:"is_broadcast"`
	Timestamp     int64       `json:"timestamp" yaml:"timestamp"`
	AccountName   string      `json:"account_name" yaml:"account_name"`
	CharacterName string      `json:"character_name" yaml:"character_name"`
	Text          string      `json:"text" yaml:"text"`
}

// Normalized returns a copy of m with all text fields in NFC form.
func (m Message) Normalized() Message {
	m.AccountName = NormalizeText(m.AccountName)
	m.CharacterName = NormalizeText(m.CharacterName)
	m.Text = NormalizeText(m.Text)
	return m
}

// ArchivedMessage is a Message read back from the store.
type ArchivedMessage struct {
	Message
	ID           int64 `json:"id"`
	SessionStart int64 `json:"session_start"`
}

// NormalizeText converts s to Unicode NFC so that composed and decomposed
// input compare equal under substring matching.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}
