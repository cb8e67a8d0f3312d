package proc

import "io"

// FdKind tags the variant held by an FdEntry.
type FdKind int

const (
	FdConsole FdKind = iota
	FdFile
	FdDir
	FdSocket
)

// DirEntry is a single entry returned by reading an open directory
// descriptor. It is a minimal projection of a file-system entry, kept local
// to proc so this package does not need to import the file-system package.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FdEntry is the tagged union a process's open file-descriptor table holds.
// Only the field matching Kind is meaningful.
type FdEntry struct {
	Kind FdKind

	// FdFile
	Reader io.Reader

	// FdDir
	Entries  []DirEntry
	DirIndex int

	// FdSocket: an opaque handle into the kernel's socket set.
	Socket int
}

// fdTable is a process's open file descriptors: a slice addressed by index,
// with a free list of indices vacated by closed descriptors so they are
// reused before the slice grows, matching the original kernel's
// unused_file_descriptors stack.
type fdTable struct {
	entries []*FdEntry
	free    []int
}

func newFdTable() fdTable {
	t := fdTable{}

	// Descriptors 0-2 are preopened onto the console, mirroring the
	// conventional stdin/stdout/stderr layout.
	for i := 0; i < 3; i++ {
		t.entries = append(t.entries, &FdEntry{Kind: FdConsole})
	}

	return t
}

// Open installs entry into the table and returns its descriptor, reusing a
// freed slot if one is available.
func (t *fdTable) Open(entry FdEntry) int {
	if n := len(t.free); n > 0 {
		fd := t.free[n-1]
		t.free = t.free[:n-1]
		t.entries[fd] = &entry

		return fd
	}

	t.entries = append(t.entries, &entry)

	return len(t.entries) - 1
}

// Get returns the entry at fd, or false if fd is out of range or closed.
func (t *fdTable) Get(fd int) (*FdEntry, bool) {
	if fd < 0 || fd >= len(t.entries) || t.entries[fd] == nil {
		return nil, false
	}

	return t.entries[fd], true
}

// Close removes the entry at fd, returning it so the caller can release any
// resources it holds (e.g. a socket handle). It returns false if fd was
// already closed or out of range.
func (t *fdTable) Close(fd int) (*FdEntry, bool) {
	entry, ok := t.Get(fd)
	if !ok {
		return nil, false
	}

	t.entries[fd] = nil
	t.free = append(t.free, fd)

	return entry, true
}

// Open3 reports the preopened console descriptors, for tests and the
// bootstrap process image.
func Open3() (stdin, stdout, stderr int) { return 0, 1, 2 }

// All returns every currently open descriptor index, for exit-time cleanup.
func (t *fdTable) All() []int {
	var fds []int

	for i, e := range t.entries {
		if e != nil {
			fds = append(fds, i)
		}
	}

	return fds
}
