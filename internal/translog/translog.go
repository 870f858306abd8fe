// Package translog writes human-readable per-session transcripts under
// <home>/logs/<session-id>/chat.txt. Operators read these; scheduling
// never does.
package translog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfalcon/negotia/internal/negotiation"
)

// Writer persists session transcripts below a root directory.
type Writer struct {
	Root string
}

// New returns a Writer rooted at <home>/logs.
func New(home string) *Writer {
	return &Writer{Root: filepath.Join(home, "logs")}
}

// Save rewrites the session's chat.txt from its full ordered turn list,
// so the file always mirrors the session including terminal status.
func (w *Writer) Save(n *negotiation.Negotiation) error {
	dir := filepath.Join(w.Root, n.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", n.Summary())
	for i, t := range n.Turns {
		fmt.Fprintf(&b, "[%d] [%s] %s: %s\n",
			i, t.Timestamp.UTC().Format("2006-01-02 15:04:05"), t.SenderID, t.Message)
	}
	path := filepath.Join(dir, "chat.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
