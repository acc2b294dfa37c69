package gate

import "testing"

func TestDescribe(t *testing.T) {
	specs := []struct {
		vector      Vector
		expKind     Kind
		expReserved bool
		expMnemonic string
	}{
		{DivideError, KindPlain, false, "#DE"},
		{Breakpoint, KindPlain, false, "#BP"},
		{DoubleFault, KindDivergingErrorCode, false, "#DF"},
		{CoprocessorSegmentOverrun, KindReserved, true, ""},
		{InvalidTSS, KindErrorCode, false, "#TS"},
		{PageFault, KindErrorCode, false, "#PF"},
		{15, KindReserved, true, ""},
		{AlignmentCheck, KindErrorCode, false, "#AC"},
		{MachineCheck, KindDiverging, false, "#MC"},
		{Virtualization, KindPlain, false, "#VE"},
		{21, KindReserved, true, ""},
		{29, KindReserved, true, ""},
		{SecurityException, KindErrorCode, false, "#SX"},
		{31, KindReserved, true, ""},
		{FirstDeviceVector, KindPlain, false, "INTR"},
		{255, KindPlain, false, "INTR"},
	}

	for specIndex, spec := range specs {
		info := Describe(spec.vector)
		if info.Kind != spec.expKind || info.Reserved != spec.expReserved || info.Mnemonic != spec.expMnemonic {
			t.Errorf("[spec %d] vector %d: expected kind %s reserved %t mnemonic %q; got %+v",
				specIndex, spec.vector, spec.expKind, spec.expReserved, spec.expMnemonic, info)
		}

		if info.Name == "" || info.IPSemantics == "" {
			t.Errorf("[spec %d] vector %d: incomplete description %+v", specIndex, spec.vector, info)
		}
	}
}

func TestKind(t *testing.T) {
	specs := []struct {
		kind       Kind
		expCode    bool
		expDiverge bool
		expStr     string
	}{
		{KindPlain, false, false, "plain"},
		{KindErrorCode, true, false, "error-code"},
		{KindDiverging, false, true, "diverging"},
		{KindDivergingErrorCode, true, true, "diverging error-code"},
		{KindReserved, false, false, "reserved"},
		{Kind(42), false, false, "invalid"},
	}

	for specIndex, spec := range specs {
		if got := spec.kind.HasErrorCode(); got != spec.expCode {
			t.Errorf("[spec %d] expected HasErrorCode() to return %t; got %t", specIndex, spec.expCode, got)
		}

		if got := spec.kind.Diverges(); got != spec.expDiverge {
			t.Errorf("[spec %d] expected Diverges() to return %t; got %t", specIndex, spec.expDiverge, got)
		}

		if got := spec.kind.String(); got != spec.expStr {
			t.Errorf("[spec %d] expected String() to return %q; got %q", specIndex, spec.expStr, got)
		}
	}
}
