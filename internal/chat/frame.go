package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame types sent from the server to clients.
const (
	FrameInfo     = "info"
	FrameError    = "error"
	FrameSuccess  = "success"
	FrameChat     = "chat"
	FrameUserList = "user_list"
)

// TimestampLayout renders chat and login times.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// User-facing texts.
const (
	promptUsername   = "Enter your username:"
	msgNameTaken     = "Username already taken."
	msgNameRequired  = "Username is required."
	msgInvalidFrame  = "Invalid message format."
	msgMessageNeeded = "Message is required."
	msgMuted         = "You are muted and cannot send messages."
	msgTooFast       = "You are sending messages too fast."
	msgUserNotFound  = "User not found."
)

// ChatRecord is one chat message as delivered to clients. Public records are
// also handed to the HistorySink; private ones never are.
type ChatRecord struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Private   bool   `json:"private,omitempty"`
}

// UserEntry describes one occupant in a user_list frame.
type UserEntry struct {
	Username  string `json:"username"`
	LoginTime string `json:"login_time"`
	SessionID uint64 `json:"session_id"`
}

// Frame is the server-to-client envelope.
type Frame struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    *ChatRecord `json:"data,omitempty"`
	Users   []UserEntry `json:"users,omitempty"`
}

// Inbound is a client-to-server frame. Pointer fields distinguish an absent
// field from an empty one.
type Inbound struct {
	Message *string `json:"message,omitempty"`
	To      *string `json:"to,omitempty"`
	Command *string `json:"command,omitempty"`
}

// DecodeInbound parses a raw client frame.
func DecodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return in, nil
}

// FormatTime renders t with TimestampLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimestampLayout)
}

func infoFrame(msg string) Frame {
	return Frame{Type: FrameInfo, Message: msg}
}

func errorFrame(msg string) Frame {
	return Frame{Type: FrameError, Message: msg}
}

func chatFrame(rec ChatRecord) Frame {
	return Frame{Type: FrameChat, Data: &rec}
}

func userListFrame(sessions []*Session) Frame {
	users := make([]UserEntry, 0, len(sessions))
	for _, s := range sessions {
		users = append(users, UserEntry{
			Username:  s.Username,
			LoginTime: FormatTime(s.JoinedAt),
			SessionID: s.ID,
		})
	}
	return Frame{Type: FrameUserList, Users: users}
}

func encodeFrame(f Frame) ([]byte, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	return payload, nil
}
