package syscall

// Syscall numbers: the fixed ABI a trapped SVC instruction selects a
// handler by. The SVC instruction's immediate operand (decoded into
// trap.Syndrome.Imm) carries the syscall number -- it is never passed in a
// register. Arguments start at x[0]; on return x[0] carries the result and
// x[7] carries the Errno.
const (
	Sleep     = 1
	Time      = 2
	Exit      = 3
	WriteByte = 4
	GetPID    = 5
	WriteStr  = 6
	Sbrk      = 7
	Rand      = 8
	RRand     = 9
	Entropy   = 10

	SockCreate  = 20
	SockStatus  = 21
	SockConnect = 22
	SockListen  = 23
	SockSend    = 24
	SockRecv    = 25

	Open = 30
	Read = 31
)
