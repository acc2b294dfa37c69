package gate

import "testing"

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	if exp := Options(0x0e00); o != exp {
		t.Fatalf("expected default options to be 0x%x; got 0x%x", uint16(exp), uint16(o))
	}

	if o.Present() || o.Trap() || o.PrivilegeLevel() != Ring0 || o.StackIndex() != 0 {
		t.Fatal("expected default options to describe an absent ring 0 interrupt gate")
	}
}

func TestNewOptions(t *testing.T) {
	specs := []struct {
		trap    bool
		dpl     PrivilegeLevel
		present bool
		exp     uint16
	}{
		{false, Ring0, false, 0x0e00},
		{false, Ring0, true, 0x8e00},
		{true, Ring0, true, 0x8f00},
		{false, Ring3, true, 0xee00},
		{true, Ring3, false, 0x6f00},
	}

	for specIndex, spec := range specs {
		if got := NewOptions(spec.trap, spec.dpl, spec.present); uint16(got) != spec.exp {
			t.Errorf("[spec %d] expected 0x%x; got 0x%x", specIndex, spec.exp, uint16(got))
		}
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	type step func(*Options)

	var (
		setTrap    = func(v bool) step { return func(o *Options) { o.SetTrap(v) } }
		setDPL     = func(v PrivilegeLevel) step { return func(o *Options) { o.SetPrivilegeLevel(v) } }
		setPresent = func(v bool) step { return func(o *Options) { o.SetPresent(v) } }
		setStack   = func(v uint8) step { return func(o *Options) { o.SetStackIndex(v) } }
	)

	specs := []struct {
		steps      []step
		expTrap    bool
		expDPL     PrivilegeLevel
		expPresent bool
		expStack   uint8
	}{
		{[]step{setTrap(true), setDPL(Ring3), setPresent(true)}, true, Ring3, true, 0},
		{[]step{setPresent(true), setDPL(Ring2), setTrap(true), setTrap(false)}, false, Ring2, true, 0},
		{[]step{setDPL(Ring3), setDPL(Ring1), setPresent(true), setPresent(false)}, false, Ring1, false, 0},
		{[]step{setStack(1), setTrap(true), setStack(5)}, true, Ring0, false, 5},
		{[]step{setStack(0xff), setDPL(PrivilegeLevel(0xff))}, false, Ring3, false, 7},
	}

	for specIndex, spec := range specs {
		o := DefaultOptions()
		for _, s := range spec.steps {
			s(&o)
			if o&optMustBeOne != optMustBeOne {
				t.Fatalf("[spec %d] setter cleared the must-be-one bits: 0x%x", specIndex, uint16(o))
			}
		}

		if got := o.Trap(); got != spec.expTrap {
			t.Errorf("[spec %d] expected Trap() to return %t; got %t", specIndex, spec.expTrap, got)
		}

		if got := o.PrivilegeLevel(); got != spec.expDPL {
			t.Errorf("[spec %d] expected PrivilegeLevel() to return %d; got %d", specIndex, spec.expDPL, got)
		}

		if got := o.Present(); got != spec.expPresent {
			t.Errorf("[spec %d] expected Present() to return %t; got %t", specIndex, spec.expPresent, got)
		}

		if got := o.StackIndex(); got != spec.expStack {
			t.Errorf("[spec %d] expected StackIndex() to return %d; got %d", specIndex, spec.expStack, got)
		}

		if reserved := uint16(o) &^ uint16(optDefinedBits); reserved != 0 {
			t.Errorf("[spec %d] reserved bits set: 0x%x", specIndex, reserved)
		}
	}
}

func TestSegmentSelector(t *testing.T) {
	specs := []struct {
		index uint16
		rpl   PrivilegeLevel
		exp   SegmentSelector
	}{
		{0, Ring0, 0x00},
		{1, Ring0, 0x08},
		{2, Ring0, 0x10},
		{3, Ring3, 0x1b},
	}

	for specIndex, spec := range specs {
		sel := NewSegmentSelector(spec.index, spec.rpl)
		if sel != spec.exp {
			t.Errorf("[spec %d] expected selector 0x%x; got 0x%x", specIndex, uint16(spec.exp), uint16(sel))
		}

		if sel.Index() != spec.index || sel.RPL() != spec.rpl {
			t.Errorf("[spec %d] expected index %d rpl %d; got index %d rpl %d", specIndex, spec.index, spec.rpl, sel.Index(), sel.RPL())
		}
	}

	sel := NewSegmentSelector(4, Ring0)
	sel.SetRPL(Ring3)
	if sel.Index() != 4 || sel.RPL() != Ring3 {
		t.Fatalf("expected SetRPL to keep index 4 and set rpl 3; got 0x%x", uint16(sel))
	}
}
