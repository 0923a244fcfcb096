package kernel

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction. The numbering keeps
// the immediate pushers equal to their value tags, and STOP at zero so
// a zero-filled store region halts instead of running garbage.
type Opcode byte

// Control
const (
	OpStop Opcode = 0x00 // tear down the current process
)

// Immediate pushers (opcode equals the value tag)
const (
	OpChar   Opcode = 0x01 // push inline CHAR
	OpInt    Opcode = 0x02 // push inline big-endian INT
	OpString Opcode = 0x03 // push inline NUL-terminated STRING
	OpFloat  Opcode = 0x04 // push inline MSB-first FLOAT
)

// Memory
const (
	OpSet Opcode = 0x05 // bind popped value to inline variable name
	OpGet Opcode = 0x06 // push variable bound to inline name
)

// Arithmetic
const (
	OpIncrement Opcode = 0x07 // unary +1, same tag
	OpDecrement Opcode = 0x08 // unary -1, same tag
	OpPlus      Opcode = 0x09 // binary +, widest tag
	OpMinus     Opcode = 0x0A // binary -, widest tag
	OpTimes     Opcode = 0x0B // binary *, widest tag
	OpDividedBy Opcode = 0x0C // binary /, widest tag
)

// Timing
const (
	OpDelay      Opcode = 0x2D // reserved, no-op
	OpDelayUntil Opcode = 0x2E // pop INT deadline, retry until reached
	OpMillis     Opcode = 0x2F // push wall clock as INT
)

// Hardware
const (
	OpPinMode      Opcode = 0x30 // pop INT direction, INT pin
	OpDigitalWrite Opcode = 0x31 // pop INT level, INT pin
	OpDigitalRead  Opcode = 0x32 // pop INT pin, push INT level
)

// Console
const (
	OpPrint   Opcode = 0x33 // pop one value, render it
	OpPrintln Opcode = 0x34 // pop one value, render it, newline
)

// Processes
const (
	OpFork          Opcode = 0x3A // pop STRING filename, push child pid
	OpWaitUntilDone Opcode = 0x3B // pop INT pid, retry until it is gone
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandKind describes the inline operand an opcode reads from the
// instruction stream.
type OperandKind int

const (
	OperandNone    OperandKind = iota
	OperandChar                // one byte
	OperandInt                 // two bytes, big-endian
	OperandString              // NUL-terminated bytes
	OperandFloat               // four bytes, MSB first
	OperandVarName             // one byte variable name
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name    string
	Operand OperandKind
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpStop:          {"STOP", OperandNone},
	OpChar:          {"CHAR", OperandChar},
	OpInt:           {"INT", OperandInt},
	OpString:        {"STRING", OperandString},
	OpFloat:         {"FLOAT", OperandFloat},
	OpSet:           {"SET", OperandVarName},
	OpGet:           {"GET", OperandVarName},
	OpIncrement:     {"INCREMENT", OperandNone},
	OpDecrement:     {"DECREMENT", OperandNone},
	OpPlus:          {"PLUS", OperandNone},
	OpMinus:         {"MINUS", OperandNone},
	OpTimes:         {"TIMES", OperandNone},
	OpDividedBy:     {"DIVIDEDBY", OperandNone},
	OpDelay:         {"DELAY", OperandNone},
	OpDelayUntil:    {"DELAYUNTIL", OperandNone},
	OpMillis:        {"MILLIS", OperandNone},
	OpPinMode:       {"PINMODE", OperandNone},
	OpDigitalWrite:  {"DIGITALWRITE", OperandNone},
	OpDigitalRead:   {"DIGITALREAD", OperandNone},
	OpPrint:         {"PRINT", OperandNone},
	OpPrintln:       {"PRINTLN", OperandNone},
	OpFork:          {"FORK", OperandNone},
	OpWaitUntilDone: {"WAITUNTILDONE", OperandNone},
}

// opcodeByName is the reverse index, used by the assembler.
var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		m[info.Name] = op
	}
	return m
}()

// Info returns the metadata for op, and false for unknown opcodes.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

func (op Opcode) String() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

// OpcodeByName returns the opcode with the given mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}
