// Package proc defines the process record: the saved CPU context (trap
// frame), open file descriptors, and scheduling state that together
// describe one user process.
package proc

// V128 models a 128-bit SIMD/FP register. AArch64 has 32 of these (Q0-Q31);
// Go has no native 128-bit integer, so each is represented as a pair of
// 64-bit halves.
type V128 struct {
	Hi, Lo uint64
}

// TrapFrame is the complete saved register state of a process, captured on
// every trap into the kernel and restored on the way back out. Its field
// order and contents mirror exactly what a real AArch64 exception handler
// would push: both translation table base registers (a process only ever
// uses TTBR0, but TTBR1 is saved too since the kernel context-switches
// through this same structure), the exception link register, saved
// processor state, user stack pointer, thread pointer, the full vector
// register file, and the 31 general-purpose registers (x31 is the stack
// pointer and is not duplicated here).
type TrapFrame struct {
	TTBR0 uint64
	TTBR1 uint64
	ELR   uint64 // Exception Link Register: resume address.
	SPSR  uint64 // Saved Program Status Register.
	SP    uint64 // User stack pointer.
	TPIDR uint64 // Thread pointer, used to correlate a trap back to its process.

	Q [32]V128
	X [31]uint64
}

// Arg returns syscall argument register xn (0-7), per the fixed syscall ABI
// register assignment.
func (tf *TrapFrame) Arg(n int) uint64 {
	return tf.X[n]
}

// SetResult writes a syscall's return value into x0 and its error code
// into x7, per the ABI.
func (tf *TrapFrame) SetResult(value uint64, errno uint64) {
	tf.X[0] = value
	tf.X[7] = errno
}
