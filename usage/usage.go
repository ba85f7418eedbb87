// Package usage tracks which file owns each block of a volume while its
// catalog is scanned, so that blocks claimed twice, or marked in a volume
// bitmap without an owner, can be reported.
package usage

import (
	"fmt"
)

// Owner is whatever claims a block, normally a file entry pointer.
// Owners are compared with ==.
type Owner interface{}

type sentinel string

func (s sentinel) String() string { return string(s) }

var (
	// System owns boot and directory blocks.
	System Owner = sentinel("<system>")
)

type chunk struct {
	owner  Owner
	extra  []Owner
	marked bool
}

// Map is the per-block ownership table.
type Map struct {
	chunks []chunk

	// derived is set for filesystems without an allocation bitmap: a block
	// is marked in use exactly when somebody claims it.
	derived bool
}

// Summary is the result of Analyze. The four counts are disjoint.
type Summary struct {
	MarkedUsed    int
	UnusedMarked  int
	UsedNotMarked int
	Conflicts     int
}

// New creates a map for a filesystem with an on-disk allocation bitmap.
// Marks are set with SetMarked.
func New(blocks int) *Map {
	return &Map{chunks: make([]chunk, blocks)}
}

// NewDerived creates a map for a filesystem without a bitmap.
func NewDerived(blocks int) *Map {
	return &Map{chunks: make([]chunk, blocks), derived: true}
}

func (m *Map) Len() int {
	return len(m.chunks)
}

func (m *Map) check(block int) error {
	if block < 0 || block >= len(m.chunks) {
		return fmt.Errorf("block %d outside usage map (%d blocks)", block, len(m.chunks))
	}
	return nil
}

// MarkSystem claims count blocks starting at first for System.
func (m *Map) MarkSystem(first, count int) error {
	for b := first; b < first+count; b++ {
		if err := m.Claim(b, System); err != nil {
			return err
		}
	}
	return nil
}

// Claim records owner as a user of block. A block already owned by a
// different owner becomes conflicted; that is recorded, not refused.
func (m *Map) Claim(block int, owner Owner) error {
	if err := m.check(block); err != nil {
		return err
	}
	c := &m.chunks[block]
	switch {
	case c.owner == nil:
		c.owner = owner
	case c.owner == owner:
	default:
		for _, o := range c.extra {
			if o == owner {
				return nil
			}
		}
		c.extra = append(c.extra, owner)
	}
	if m.derived {
		c.marked = true
	}
	return nil
}

// ClaimRange claims [start, end).
func (m *Map) ClaimRange(start, end int, owner Owner) error {
	for b := start; b < end; b++ {
		if err := m.Claim(b, owner); err != nil {
			return err
		}
	}
	return nil
}

// Release drops every claim held by owner and returns how many blocks
// were freed outright.
func (m *Map) Release(owner Owner) int {
	freed := 0
	for i := range m.chunks {
		c := &m.chunks[i]
		if c.owner == owner {
			c.owner = nil
			if len(c.extra) > 0 {
				c.owner = c.extra[0]
				c.extra = c.extra[1:]
			}
		} else {
			for j, o := range c.extra {
				if o == owner {
					c.extra = append(c.extra[:j], c.extra[j+1:]...)
					break
				}
			}
		}
		if len(c.extra) == 0 {
			c.extra = nil
		}
		if m.derived && c.owner == nil && c.marked {
			c.marked = false
			freed++
		}
	}
	return freed
}

// SetMarked records the on-disk bitmap state of a block.
func (m *Map) SetMarked(block int, used bool) error {
	if err := m.check(block); err != nil {
		return err
	}
	m.chunks[block].marked = used
	return nil
}

func (m *Map) Owner(block int) Owner {
	if m.check(block) != nil {
		return nil
	}
	return m.chunks[block].owner
}

func (m *Map) IsClaimed(block int) bool {
	return m.Owner(block) != nil
}

func (m *Map) IsConflicted(block int) bool {
	if m.check(block) != nil {
		return false
	}
	return len(m.chunks[block].extra) > 0
}

// FreeCount is the number of unclaimed blocks.
func (m *Map) FreeCount() int {
	n := 0
	for _, c := range m.chunks {
		if c.owner == nil {
			n++
		}
	}
	return n
}

// ConflictingOwners lists every owner involved in a conflict, in block order,
// each once.
func (m *Map) ConflictingOwners() []Owner {
	var out []Owner
	seen := make(map[Owner]bool)
	add := func(o Owner) {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	for _, c := range m.chunks {
		if len(c.extra) == 0 {
			continue
		}
		add(c.owner)
		for _, o := range c.extra {
			add(o)
		}
	}
	return out
}

// Analyze sorts every block into one of the Summary buckets. Unclaimed,
// unmarked blocks are not counted.
func (m *Map) Analyze() Summary {
	var s Summary
	for _, c := range m.chunks {
		claimed := c.owner != nil
		switch {
		case len(c.extra) > 0:
			s.Conflicts++
		case claimed && c.marked:
			s.MarkedUsed++
		case claimed && !c.marked:
			s.UsedNotMarked++
		case !claimed && c.marked:
			s.UnusedMarked++
		}
	}
	return s
}
