package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Deduplicator removes archived sessions whose transcripts are identical.
// Identity is a content hash over role, text, and timestamp of every
// message, so renamed copies of the same conversation collapse to one.
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate keeps the first session seen for each distinct transcript.
func (d *Deduplicator) Deduplicate(sessions []*ArchivedSession) []*ArchivedSession {
	seen := make(map[string]bool)
	var unique []*ArchivedSession

	for _, session := range sessions {
		hash := d.hashTranscript(session)
		if !seen[hash] {
			seen[hash] = true
			unique = append(unique, session)
		}
	}

	return unique
}

// hashTranscript creates a content-based hash for a session's messages
func (d *Deduplicator) hashTranscript(session *ArchivedSession) string {
	h := sha256.New()

	for _, msg := range session.Messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte(msg.Content))
		h.Write([]byte(strconv.FormatInt(msg.Timestamp.UnixMilli(), 10)))
	}

	return hex.EncodeToString(h.Sum(nil))
}
