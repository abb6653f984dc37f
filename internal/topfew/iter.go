package topfew

// Iter is a double-ended cursor over the tracked values. Next walks from the
// largest value down; NextBack walks from the smallest up. The two cursors
// converge, so alternating calls partition the values between them. An Iter
// reads the tracker it came from in place: the tracker must not be mutated
// while the Iter is in use. Iterators are cheap to construct, so re-derive
// one after any mutation instead of holding on to it.
type Iter struct {
	t *Top16
	// Bit position of the next element NextBack returns.
	fwdShift uint32
	// Bit position just past the next element Next returns.
	bwdShift uint32
}

// Iter returns a cursor over all tracked values, largest first. Slots that
// never admitted a value are skipped, so a tracker that has seen fewer than
// 16 qualifying values yields fewer than 16.
func (t *Top16) Iter() Iter {
	return t.makeIter(0)
}

// Take returns a cursor over the top n values, largest first. It is
// equivalent to stopping Iter after n values, but seeks the cursor directly
// instead of counting. n larger than the capacity behaves like Iter.
func (t *Top16) Take(n int) Iter {
	if n < 0 {
		n = 0
	}
	if n > NumTracked {
		n = NumTracked
	}
	return t.makeIter(uint32(NumTracked-n) * ixBits)
}

// makeIter builds a cursor starting the ascending end at fwdShift. Slots
// still holding the cutoff sit below every admitted value, so one forward
// scan here, rather than a check per call, is enough to skip them.
func (t *Top16) makeIter(fwdShift uint32) Iter {
	for fwdShift < ixsBits && t.elementAt(fwdShift) <= t.cutoff {
		fwdShift += ixBits
	}
	return Iter{t: t, fwdShift: fwdShift, bwdShift: ixsBits}
}

// Next returns the next value in descending order, or false when the cursors
// have met.
func (it *Iter) Next() (uint64, bool) {
	if it.fwdShift == it.bwdShift {
		return 0, false
	}
	it.bwdShift -= ixBits
	return it.t.elementAt(it.bwdShift), true
}

// NextBack returns the next value in ascending order, or false when the
// cursors have met.
func (it *Iter) NextBack() (uint64, bool) {
	if it.fwdShift == it.bwdShift {
		return 0, false
	}
	v := it.t.elementAt(it.fwdShift)
	it.fwdShift += ixBits
	return v, true
}
