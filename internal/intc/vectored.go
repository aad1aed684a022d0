package intc

// Vector is one of the 16 vectored-interrupt entries of the later SoC.
type Vector struct {
	Address uint32
	Enable  bool
	Source  int // line index this vector is assigned to
}

// Vectored wraps a classic Controller with the later SoC's 16-entry vector
// table and default-handler register (spec §3/§4.B "later SoC variant").
type Vectored struct {
	Controller

	vectors        [16]Vector
	currentVector  uint32
	defaultHandler uint32
}

// NewVectored returns a freshly initialised vectored controller.
func NewVectored() *Vectored {
	return &Vectored{Controller: *New()}
}

// SetVector configures one of the 16 vector slots.
func (v *Vectored) SetVector(slot int, vec Vector) {
	if slot < 0 || slot >= len(v.vectors) {
		return
	}
	v.vectors[slot] = vec
	v.rescan()
}

// SetDefaultHandler sets the address exposed when no vector matches.
func (v *Vectored) SetDefaultHandler(addr uint32) {
	v.defaultHandler = addr
}

// rescan is invoked on every line change (recompute is the classic hook;
// we additionally rescan the vector table here). The first enabled vector
// whose source line is in the currently pending masked set wins.
func (v *Vectored) rescan() {
	pending := v.Pending(IRQ)
	for _, vec := range v.vectors {
		if !vec.Enable {
			continue
		}
		if vec.Source < 0 || vec.Source >= numLines {
			continue
		}
		if pending&(1<<uint(vec.Source)) != 0 {
			v.currentVector = vec.Address
			return
		}
	}
	v.currentVector = v.defaultHandler
}

// CurrentVectorAddress returns the address exposed by the current-vector
// register: the first matching enabled vector, or the default handler.
func (v *Vectored) CurrentVectorAddress() uint32 {
	return v.currentVector
}

// SetLine overrides Controller.SetLine to also rescan the vector table.
func (v *Vectored) SetLine(line int, on bool) error {
	if err := v.Controller.SetLine(line, on); err != nil {
		return err
	}
	v.rescan()
	return nil
}

// IRQPendingWord and FIQPendingWord expose the separate masked-pending
// words the later SoC reads directly (spec §4.B "Separate masked-pending
// words for IRQ and FIQ are directly readable").
func (v *Vectored) IRQPendingWord() uint32 { return v.Pending(IRQ) }
func (v *Vectored) FIQPendingWord() uint32 { return v.Pending(FIQ) }

// The following overrides exist only to keep the vector-table scan current;
// every mutation that can change the pending-masked set must rescan.

func (v *Vectored) SetMask(bank Bank, bits uint32, set bool) {
	v.Controller.SetMask(bank, bits, set)
	v.rescan()
}

func (v *Vectored) SetSticky(bits uint32) {
	v.Controller.SetSticky(bits)
	v.rescan()
}

func (v *Vectored) SetNoninverted(bits uint32) {
	v.Controller.SetNoninverted(bits)
	v.rescan()
}

func (v *Vectored) AckStickyStatus(bits uint32) {
	v.Controller.AckStickyStatus(bits)
	v.rescan()
}
