package fsys

import (
	"fmt"
	"strings"
)

type NoteKind int

const (
	NoteInfo NoteKind = iota
	NoteWarning
	NoteError
)

func (k NoteKind) String() string {
	switch k {
	case NoteWarning:
		return "W"
	case NoteError:
		return "E"
	}
	return "I"
}

type Note struct {
	Kind NoteKind
	Text string
}

func (n Note) String() string {
	return n.Kind.String() + ": " + n.Text
}

// Notes is the ordered list of advisory messages collected while scanning a
// volume. It is cleared at the start of every scan.
type Notes struct {
	list []Note
}

func (n *Notes) Add(kind NoteKind, format string, v ...interface{}) {
	n.list = append(n.list, Note{Kind: kind, Text: fmt.Sprintf(format, v...)})
}

func (n *Notes) AddI(format string, v ...interface{}) { n.Add(NoteInfo, format, v...) }
func (n *Notes) AddW(format string, v ...interface{}) { n.Add(NoteWarning, format, v...) }
func (n *Notes) AddE(format string, v ...interface{}) { n.Add(NoteError, format, v...) }

func (n *Notes) Clear() {
	n.list = nil
}

func (n *Notes) Count() int {
	return len(n.list)
}

func (n *Notes) List() []Note {
	out := make([]Note, len(n.list))
	copy(out, n.list)
	return out
}

// Has reports whether any note contains text.
func (n *Notes) Has(text string) bool {
	for _, note := range n.list {
		if strings.Contains(note.Text, text) {
			return true
		}
	}
	return false
}

func (n *Notes) String() string {
	var sb strings.Builder
	for _, note := range n.list {
		sb.WriteString(note.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
