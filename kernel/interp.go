package kernel

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Bytecode interpreter
// ---------------------------------------------------------------------------

// fetchByte reads the next instruction-stream byte and advances pc.
func (k *Kernel) fetchByte(p *Proc) (byte, bool) {
	if p.PC < 0 || p.PC >= p.Length {
		return 0, false
	}
	b := k.st.ReadByte(p.Base + p.PC)
	p.PC++
	return b, true
}

// step executes exactly one instruction of p. Execution errors abort
// at most p; the scheduler is never touched.
func (k *Kernel) step(p *Proc) {
	b, ok := k.fetchByte(p)
	if !ok {
		k.fail(p, fmt.Errorf("%w: pc beyond program end", ErrBadProgram))
		return
	}
	op := Opcode(b)
	switch op {
	case OpStop:
		k.exit(p)

	case OpChar:
		b, ok := k.fetchByte(p)
		if !ok {
			k.fail(p, fmt.Errorf("%w: truncated CHAR operand", ErrBadProgram))
			return
		}
		k.push(p, CharValue(b))

	case OpInt:
		hi, ok1 := k.fetchByte(p)
		lo, ok2 := k.fetchByte(p)
		if !ok1 || !ok2 {
			k.fail(p, fmt.Errorf("%w: truncated INT operand", ErrBadProgram))
			return
		}
		k.push(p, IntValue(int16(uint16(hi)<<8|uint16(lo))))

	case OpString:
		s := make([]byte, 0, 16)
		for {
			b, ok := k.fetchByte(p)
			if !ok {
				k.fail(p, fmt.Errorf("%w: unterminated STRING operand", ErrBadProgram))
				return
			}
			if b == 0 {
				break
			}
			s = append(s, b)
		}
		k.push(p, StringValue(s))

	case OpFloat:
		var bits uint32
		for i := 0; i < 4; i++ {
			b, ok := k.fetchByte(p)
			if !ok {
				k.fail(p, fmt.Errorf("%w: truncated FLOAT operand", ErrBadProgram))
				return
			}
			bits = bits<<8 | uint32(b)
		}
		k.push(p, FloatValue(math.Float32frombits(bits)))

	case OpSet:
		name, ok := k.fetchByte(p)
		if !ok {
			k.fail(p, fmt.Errorf("%w: SET without variable name", ErrBadProgram))
			return
		}
		v, err := p.stack.PopValue()
		if err != nil {
			k.fail(p, err)
			return
		}
		if err := k.arena.Set(name, p.PID, v); err != nil {
			k.printf("Cannot set variable '%c': %v\n", name, err)
		}

	case OpGet:
		name, ok := k.fetchByte(p)
		if !ok {
			k.fail(p, fmt.Errorf("%w: GET without variable name", ErrBadProgram))
			return
		}
		v, err := k.arena.Get(name, p.PID)
		if err != nil {
			k.printf("Variable '%c' does not exist.\n", name)
			return
		}
		k.push(p, v)

	case OpIncrement:
		k.unaryOp(p, 1)
	case OpDecrement:
		k.unaryOp(p, -1)

	case OpPlus, OpMinus, OpTimes, OpDividedBy:
		k.binaryOp(p, op)

	case OpPrint, OpPrintln:
		v, err := p.stack.PopValue()
		if err != nil {
			k.fail(p, err)
			return
		}
		k.print(v.Render(k.prec))
		if op == OpPrintln {
			k.print("\n")
		}

	case OpDelay:
		// Reserved; the reference behaviour is a no-op.

	case OpDelayUntil:
		v, err := p.stack.PopValue()
		if err != nil {
			k.fail(p, err)
			return
		}
		if v.Tag() != TagInt {
			k.fail(p, fmt.Errorf("%w: DELAYUNTIL needs an INT deadline, got %s", ErrTypeMismatch, v.Tag()))
			return
		}
		if v.Int() > int16(k.clock.Millis()) {
			// Not due yet: rewind one instruction and re-push the
			// deadline so the next scheduler visit retries. Control
			// returns immediately; other processes keep running.
			p.PC--
			k.push(p, v)
		}

	case OpMillis:
		k.push(p, IntValue(int16(k.clock.Millis())))

	case OpPinMode:
		dir, pin, ok := k.popTwoInts(p, "PINMODE")
		if ok {
			k.pins.PinMode(pin, dir)
		}

	case OpDigitalWrite:
		level, pin, ok := k.popTwoInts(p, "DIGITALWRITE")
		if ok {
			k.pins.DigitalWrite(pin, level)
		}

	case OpDigitalRead:
		v, err := p.stack.PopValue()
		if err != nil {
			k.fail(p, err)
			return
		}
		if v.Tag() != TagInt {
			k.fail(p, fmt.Errorf("%w: DIGITALREAD needs an INT pin, got %s", ErrTypeMismatch, v.Tag()))
			return
		}
		k.push(p, IntValue(int16(k.pins.DigitalRead(int(v.Int())))))

	case OpFork:
		v, err := p.stack.PopValue()
		if err != nil {
			k.fail(p, err)
			return
		}
		if v.Tag() != TagString {
			k.fail(p, fmt.Errorf("%w: FORK needs a STRING filename, got %s", ErrTypeMismatch, v.Tag()))
			return
		}
		pid := k.runProgram(string(v.Bytes()))
		k.push(p, IntValue(int16(pid)))

	case OpWaitUntilDone:
		v, err := p.stack.PopValue()
		if err != nil {
			k.fail(p, err)
			return
		}
		if v.Tag() != TagInt {
			k.fail(p, fmt.Errorf("%w: WAITUNTILDONE needs an INT pid, got %s", ErrTypeMismatch, v.Tag()))
			return
		}
		// Look the target up by pid, never by slot index. A pid that
		// is gone (or was never issued) counts as done.
		target := k.procs.ByPID(int(v.Int()))
		if target != nil && target.State != StateTerminated {
			p.PC--
			k.push(p, v)
		}

	default:
		// Report and skip; the process continues.
		k.printf("Unknown opcode 0x%02X skipped.\n", op)
		k.log.Warningf("pid=%d pc=%d: %v 0x%02X", p.PID, p.PC-1, ErrUnknownOpcode, op)
	}
}

// push terminates p on stack overflow instead of corrupting anything.
func (k *Kernel) push(p *Proc, v Value) {
	if err := p.stack.PushValue(v); err != nil {
		k.fail(p, err)
	}
}

// popTwoInts pops the (value, pin) pair the pin opcodes consume.
func (k *Kernel) popTwoInts(p *Proc, what string) (first, second int, ok bool) {
	a, err := p.stack.PopValue()
	if err != nil {
		k.fail(p, err)
		return 0, 0, false
	}
	b, err := p.stack.PopValue()
	if err != nil {
		k.fail(p, err)
		return 0, 0, false
	}
	if a.Tag() != TagInt || b.Tag() != TagInt {
		k.fail(p, fmt.Errorf("%w: %s needs two INT values, got %s and %s", ErrTypeMismatch, what, b.Tag(), a.Tag()))
		return 0, 0, false
	}
	return int(a.Int()), int(b.Int()), true
}

// unaryOp pops one numeric value and re-pushes value+delta with the
// same tag. Integer types wrap.
func (k *Kernel) unaryOp(p *Proc, delta int) {
	v, err := p.stack.PopValue()
	if err != nil {
		k.fail(p, err)
		return
	}
	switch v.Tag() {
	case TagChar:
		k.push(p, CharValue(byte(int(v.Char())+delta)))
	case TagInt:
		k.push(p, IntValue(v.Int()+int16(delta)))
	case TagFloat:
		k.push(p, FloatValue(v.Float()+float32(delta)))
	default:
		k.fail(p, fmt.Errorf("%w: arithmetic on %s", ErrTypeMismatch, v.Tag()))
	}
}

// binaryOp pops y then x and pushes the result tagged with the widest input
// tag in the order CHAR < INT < FLOAT. STRING operands are rejected.
func (k *Kernel) binaryOp(p *Proc, op Opcode) {
	y, err := p.stack.PopValue()
	if err != nil {
		k.fail(p, err)
		return
	}
	x, err := p.stack.PopValue()
	if err != nil {
		k.fail(p, err)
		return
	}
	if !x.Tag().Numeric() || !y.Tag().Numeric() {
		k.fail(p, fmt.Errorf("%w: %s on %s and %s", ErrTypeMismatch, op, x.Tag(), y.Tag()))
		return
	}
	result := x.Tag()
	if y.Tag() > result {
		result = y.Tag()
	}
	if result == TagFloat {
		xf, yf := x.AsFloat(), y.AsFloat()
		var r float32
		switch op {
		case OpPlus:
			r = xf + yf
		case OpMinus:
			r = xf - yf
		case OpTimes:
			r = xf * yf
		case OpDividedBy:
			if yf == 0 {
				k.fail(p, ErrDivideByZero)
				return
			}
			r = xf / yf
		}
		k.push(p, FloatValue(r))
		return
	}
	xi, yi := x.AsInt(), y.AsInt()
	var r int16
	switch op {
	case OpPlus:
		r = xi + yi
	case OpMinus:
		r = xi - yi
	case OpTimes:
		r = xi * yi
	case OpDividedBy:
		if yi == 0 {
			k.fail(p, ErrDivideByZero)
			return
		}
		r = xi / yi
	}
	if result == TagChar {
		k.push(p, CharValue(byte(r)))
		return
	}
	k.push(p, IntValue(r))
}
