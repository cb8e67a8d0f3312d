package syscall

import (
	"github.com/relayd/aegis/internal/device"
	"github.com/relayd/aegis/internal/device/net"
	"github.com/relayd/aegis/internal/fs"
	"github.com/relayd/aegis/internal/mem/bin"
	"github.com/relayd/aegis/internal/sched"
)

// Deps collects the kernel collaborators a syscall handler may reach into.
// It is passed explicitly rather than fetched from package-level globals so
// tests can supply fakes, matching how the original kernel's syscall
// handlers reached through named global statics -- here the globals live in
// internal/kernel and are threaded through instead of imported directly,
// which keeps this package free of any dependency on it.
type Deps struct {
	Alloc      *bin.Allocator
	Scheduler  *sched.Global
	FS         fs.FileSystem
	Net        *net.NetStack
	RNG        device.HWRNG
	Timer      device.Timer
	Console    device.Console
	LockOwner  uint64 // The token this kernel context uses to take recursive-permissive locks.
}
