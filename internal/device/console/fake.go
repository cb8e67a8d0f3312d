package console

import "bytes"

// Fake is an in-memory Console for tests: writes accumulate in Out, and
// reads are served from whatever bytes have been queued with Feed.
type Fake struct {
	Out bytes.Buffer
	in  bytes.Buffer
}

// NewFake creates an empty Fake console.
func NewFake() *Fake { return &Fake{} }

// Feed queues bytes for subsequent Read calls to return.
func (f *Fake) Feed(p []byte) { f.in.Write(p) }

func (f *Fake) Read(p []byte) (int, error) { return f.in.Read(p) }

func (f *Fake) Write(p []byte) (int, error) { return f.Out.Write(p) }
