package kernel

import "github.com/tliron/commonlog"

// PinDriver is the hardware collaborator behind PINMODE, DIGITALWRITE
// and DIGITALREAD.
type PinDriver interface {
	PinMode(pin, mode int)
	DigitalWrite(pin, level int)
	DigitalRead(pin int) int
}

// HostPins is the default driver on a host without GPIO: it keeps pin
// levels in memory and logs transitions.
type HostPins struct {
	levels map[int]int
	log    commonlog.Logger
}

// NewHostPins returns an in-memory pin driver.
func NewHostPins() *HostPins {
	return &HostPins{
		levels: make(map[int]int),
		log:    commonlog.GetLogger("femto.pins"),
	}
}

func (p *HostPins) PinMode(pin, mode int) {
	p.log.Infof("pinMode(%d, %d)", pin, mode)
}

func (p *HostPins) DigitalWrite(pin, level int) {
	p.levels[pin] = level
	p.log.Infof("digitalWrite(%d, %d)", pin, level)
}

func (p *HostPins) DigitalRead(pin int) int {
	return p.levels[pin]
}
