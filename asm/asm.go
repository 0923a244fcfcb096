// Package asm assembles textual femto programs into bytecode blobs.
//
// The source format is one instruction per line: a mnemonic followed
// by its operand, if the opcode takes one. Semicolons start comments.
//
//	INT 5          ; push INT 5
//	STRING "hi"    ; push STRING "hi"
//	CHAR 'a'       ; push CHAR 'a'
//	SET x          ; bind top of stack to variable x
//	PLUS
//	PRINTLN
//	STOP
package asm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/femto/kernel"
)

// Assemble translates src into a bytecode blob. Every well-formed
// program ends with STOP; anything else is an error.
func Assemble(src string) ([]byte, error) {
	var out []byte
	last := kernel.Opcode(0xFF)
	for lineNo, raw := range strings.Split(src, "\n") {
		line := raw
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		mnemonic, operand := splitInstruction(line)
		op, ok := kernel.OpcodeByName(strings.ToUpper(mnemonic))
		if !ok {
			return nil, fmt.Errorf("line %d: unknown mnemonic %q", lineNo+1, mnemonic)
		}
		info, _ := op.Info()
		encoded, err := encodeOperand(info.Operand, operand)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo+1, info.Name, err)
		}
		out = append(out, byte(op))
		out = append(out, encoded...)
		last = op
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty program")
	}
	if last != kernel.OpStop {
		return nil, fmt.Errorf("program does not end with STOP")
	}
	return out, nil
}

func splitInstruction(line string) (mnemonic, operand string) {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}
	return line, ""
}

func encodeOperand(kind kernel.OperandKind, operand string) ([]byte, error) {
	switch kind {
	case kernel.OperandNone:
		if operand != "" {
			return nil, fmt.Errorf("unexpected operand %q", operand)
		}
		return nil, nil

	case kernel.OperandChar:
		b, err := parseCharOperand(operand)
		if err != nil {
			return nil, err
		}
		return []byte{b}, nil

	case kernel.OperandInt:
		n, err := strconv.ParseInt(operand, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad INT operand %q", operand)
		}
		u := uint16(int16(n))
		return []byte{byte(u >> 8), byte(u)}, nil

	case kernel.OperandString:
		if len(operand) < 2 || operand[0] != '"' {
			return nil, fmt.Errorf("bad STRING operand %q", operand)
		}
		s, err := strconv.Unquote(operand)
		if err != nil {
			return nil, fmt.Errorf("bad STRING operand %q: %w", operand, err)
		}
		if strings.IndexByte(s, 0) >= 0 {
			return nil, fmt.Errorf("STRING operand contains a zero byte")
		}
		return append([]byte(s), 0x00), nil

	case kernel.OperandFloat:
		f, err := strconv.ParseFloat(operand, 32)
		if err != nil {
			return nil, fmt.Errorf("bad FLOAT operand %q", operand)
		}
		bits := math.Float32bits(float32(f))
		return []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}, nil

	case kernel.OperandVarName:
		b, err := parseCharOperand(operand)
		if err != nil {
			return nil, err
		}
		return []byte{b}, nil
	}
	return nil, fmt.Errorf("unhandled operand kind %d", kind)
}

// parseCharOperand accepts a quoted rune ('a'), a bare single
// character (x), or a numeric byte value (97, 0x61).
func parseCharOperand(operand string) (byte, error) {
	if operand == "" {
		return 0, fmt.Errorf("missing operand")
	}
	if operand[0] == '\'' {
		r, err := strconv.Unquote(operand)
		if err != nil || len(r) != 1 {
			return 0, fmt.Errorf("bad character operand %q", operand)
		}
		return r[0], nil
	}
	if len(operand) == 1 && !isDigit(operand[0]) {
		return operand[0], nil
	}
	n, err := strconv.ParseUint(operand, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad character operand %q", operand)
	}
	return byte(n), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
