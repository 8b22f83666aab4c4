package testutil_test

import (
	"testing"

	"github.com/example/spikematch/internal/testutil"
)

func TestSingleTemplateBank(t *testing.T) {
	bank := testutil.SingleTemplateBank(t, 16, 2)

	if bank.N() != 1 {
		t.Fatalf("N() = %d, want 1", bank.N())
	}

	if bank.L != 16 || bank.C != 2 {
		t.Fatalf("bank shape = (%d, %d), want (16, 2)", bank.L, bank.C)
	}
}

func TestInjectSpikeAndZeroTrace(t *testing.T) {
	l, c := 8, 2
	wave := testutil.GaussianBump(l, c)

	m := testutil.ZeroTrace(t, 32, c)
	testutil.InjectSpike(m.RawData(), c, 10, wave, l, 2.0)

	if m.At(10, 0) != 2.0*wave[0] {
		t.Errorf("trace[10][0] = %v, want %v", m.At(10, 0), 2.0*wave[0])
	}

	if m.At(0, 0) != 0 {
		t.Errorf("trace[0][0] = %v, want 0 (no injection)", m.At(0, 0))
	}
}
