// Package conversation persists replayable conversation logs as JSON files,
// one per session, under the data directory.
package conversation

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zhubert/plural-panel/paths"
	"github.com/zhubert/plural-panel/processor"
)

// ErrInvalidSessionID is returned for session ids that cannot form a safe
// filename.
var ErrInvalidSessionID = errors.New("invalid session id")

// ErrNotFound is returned when no saved conversation exists for the id.
var ErrNotFound = errors.New("conversation not found")

const maxTitleLen = 80

// Conversation is the on-disk representation of one saved session.
type Conversation struct {
	SessionID         string            `json:"sessionId"`
	Title             string            `json:"title"`
	TotalCostUSD      float64           `json:"totalCostUsd"`
	TotalTokensInput  int               `json:"totalTokensInput"`
	TotalTokensOutput int               `json:"totalTokensOutput"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	Messages          []processor.Event `json:"messages"`
}

// Summary is the listing view of a saved conversation, without its messages.
type Summary struct {
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	TotalCostUSD float64   `json:"totalCostUsd"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store reads and writes conversation files in a single directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the standard conversations directory.
func NewStore() (*Store, error) {
	dir, err := paths.ConversationsDir()
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// NewStoreAt creates a store rooted at an explicit directory. Intended for
// testing.
func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the conversation for sessionID, deriving a title from the first
// user input when none is set. CreatedAt is preserved across saves of the
// same session.
func (s *Store) Save(conv Conversation) error {
	if !validSessionID(conv.SessionID) {
		return ErrInvalidSessionID
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	now := time.Now()
	conv.UpdatedAt = now
	if conv.CreatedAt.IsZero() {
		if existing, err := s.Load(conv.SessionID); err == nil {
			conv.CreatedAt = existing.CreatedAt
		} else {
			conv.CreatedAt = now
		}
	}
	if conv.Title == "" {
		conv.Title = deriveTitle(conv.Messages)
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.pathFor(conv.SessionID), data, 0644)
}

// Load reads the conversation for sessionID.
func (s *Store) Load(sessionID string) (Conversation, error) {
	if !validSessionID(sessionID) {
		return Conversation{}, ErrInvalidSessionID
	}

	data, err := os.ReadFile(s.pathFor(sessionID))
	if os.IsNotExist(err) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, err
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// List returns summaries of every saved conversation, newest first.
// Unreadable or malformed files are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			SessionID:    conv.SessionID,
			Title:        conv.Title,
			TotalCostUSD: conv.TotalCostUSD,
			MessageCount: len(conv.Messages),
			UpdatedAt:    conv.UpdatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Delete removes the saved conversation for sessionID. Deleting a
// conversation that does not exist is not an error.
func (s *Store) Delete(sessionID string) error {
	if !validSessionID(sessionID) {
		return ErrInvalidSessionID
	}
	err := os.Remove(s.pathFor(sessionID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) pathFor(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// validSessionID rejects ids that could escape the store directory or
// produce awkward filenames.
func validSessionID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// deriveTitle uses the first recorded user input as the conversation title.
func deriveTitle(events []processor.Event) string {
	for _, ev := range events {
		if ev.MessageType != processor.KindUserInput {
			continue
		}
		var text string
		switch data := ev.Data.(type) {
		case processor.TextData:
			text = data.Text
		case map[string]any:
			text, _ = data["text"].(string)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if firstLine, _, found := strings.Cut(text, "\n"); found {
			text = firstLine
		}
		if runes := []rune(text); len(runes) > maxTitleLen {
			text = string(runes[:maxTitleLen-3]) + "..."
		}
		return text
	}
	return "Untitled conversation"
}
