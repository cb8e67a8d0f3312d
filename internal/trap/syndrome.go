package trap

// SyndromeKind is the decoded class of a synchronous exception, read from
// ESR_EL1's Exception Class (EC) field.
type SyndromeKind int

const (
	SyndromeSvc SyndromeKind = iota
	SyndromeBrk
	SyndromeDataAbort
	SyndromeInstructionAbort
	SyndromeOther
)

func (k SyndromeKind) String() string {
	switch k {
	case SyndromeSvc:
		return "Svc"
	case SyndromeBrk:
		return "Brk"
	case SyndromeDataAbort:
		return "DataAbort"
	case SyndromeInstructionAbort:
		return "InstructionAbort"
	default:
		return "Other"
	}
}

// FaultKind is the sub-classification of a data or instruction abort, read
// from the low bits of the syndrome's Data/Instruction Fault Status Code.
type FaultKind int

const (
	FaultAddressSize FaultKind = iota
	FaultTranslation
	FaultAccessFlag
	FaultPermission
	FaultAlignment
	FaultOther
)

func (k FaultKind) String() string {
	switch k {
	case FaultAddressSize:
		return "AddressSize"
	case FaultTranslation:
		return "Translation"
	case FaultAccessFlag:
		return "AccessFlag"
	case FaultPermission:
		return "Permission"
	case FaultAlignment:
		return "Alignment"
	default:
		return "Other"
	}
}

// Syndrome is the fully decoded classification of a synchronous exception.
type Syndrome struct {
	Kind  SyndromeKind
	Imm   uint16    // SVC/BRK immediate operand.
	Fault FaultKind // Valid when Kind is DataAbort or InstructionAbort.
	Level int       // Translation table level the fault occurred at.
}

// Exception-class values from the ARMv8 ESR_EL1 encoding (ARM DDI 0487,
// table D13-6). Only the classes this kernel distinguishes are named; every
// other EC value decodes to SyndromeOther.
const (
	ecSVC64      = 0x15
	ecBRK64      = 0x3c
	ecIABTLower  = 0x20
	ecIABTSameEL = 0x21
	ecDABTLower  = 0x24
	ecDABTSameEL = 0x25
)

// Decode extracts a Syndrome from a raw ESR_EL1 value.
func Decode(esr uint32) Syndrome {
	ec := (esr >> 26) & 0x3f
	iss := esr & 0x01ffffff

	switch ec {
	case ecSVC64:
		return Syndrome{Kind: SyndromeSvc, Imm: uint16(iss & 0xffff)}
	case ecBRK64:
		return Syndrome{Kind: SyndromeBrk, Imm: uint16(iss & 0xffff)}
	case ecDABTLower, ecDABTSameEL:
		fault, level := decodeFault(iss)
		return Syndrome{Kind: SyndromeDataAbort, Fault: fault, Level: level}
	case ecIABTLower, ecIABTSameEL:
		fault, level := decodeFault(iss)
		return Syndrome{Kind: SyndromeInstructionAbort, Fault: fault, Level: level}
	default:
		return Syndrome{Kind: SyndromeOther}
	}
}

// decodeFault classifies the Data/Instruction Fault Status Code carried in
// the low 6 bits of an abort's ISS.
func decodeFault(iss uint32) (FaultKind, int) {
	dfsc := iss & 0x3f
	level := int(dfsc & 0x3)

	switch {
	case dfsc == 0x21:
		return FaultAlignment, 0
	case dfsc>>2 == 0:
		return FaultAddressSize, level
	case dfsc>>2 == 1:
		return FaultTranslation, level
	case dfsc>>2 == 2:
		return FaultAccessFlag, level
	case dfsc>>2 == 3:
		return FaultPermission, level
	default:
		return FaultOther, level
	}
}
