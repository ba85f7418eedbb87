package fsys

import "fmt"

// OpenFile pairs an entry with a stream opened on it.
type OpenFile struct {
	Entry  FileEntry
	Stream FileStream
	Mode   FileAccessMode
	Part   FilePart
}

// OpenFiles is a driver's table of open streams. A part may have any
// number of readers but only one writer.
type OpenFiles struct {
	list []*OpenFile
}

// CheckOpen returns ErrFileOpen if opening entry/part with mode would give
// it a second writer.
func (o *OpenFiles) CheckOpen(entry FileEntry, mode FileAccessMode, part FilePart) error {
	if mode != ReadWrite {
		return nil
	}
	for _, of := range o.list {
		if of.Entry == entry && of.Part == part && of.Mode == ReadWrite {
			return fmt.Errorf("%s fork: %w", part, ErrFileOpen)
		}
	}
	return nil
}

func (o *OpenFiles) Add(of *OpenFile) {
	o.list = append(o.list, of)
}

// Remove forgets the record for stream; false if it was not tracked.
func (o *OpenFiles) Remove(stream FileStream) bool {
	for i, of := range o.list {
		if of.Stream == stream {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return true
		}
	}
	return false
}

func (o *OpenFiles) IsOpen(entry FileEntry) bool {
	for _, of := range o.list {
		if of.Entry == entry {
			return true
		}
	}
	return false
}

func (o *OpenFiles) Count() int {
	return len(o.list)
}

// Streams returns a copy of the open streams, safe to close while iterating.
func (o *OpenFiles) Streams() []FileStream {
	out := make([]FileStream, 0, len(o.list))
	for _, of := range o.list {
		out = append(out, of.Stream)
	}
	return out
}
