package doctor_test

import (
	"strings"
	"testing"

	"github.com/example/spikematch/internal/doctor"
	"github.com/example/spikematch/internal/template"
)

func buildBank(t *testing.T) *template.Bank {
	t.Helper()

	wave := make([]float32, 16*2)
	for i := range wave {
		wave[i] = float32(i%7) - 3
	}

	bank, err := template.NewBank(template.Config{L: 16, C: 2, Waveforms: [][]float32{wave}})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	return bank
}

func TestRun_AllChecksPass(t *testing.T) {
	bank := buildBank(t)

	var out strings.Builder
	result := doctor.Run(doctor.Config{Bank: bank, Rank: 2}, &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}
	if !strings.Contains(out.String(), "template bank") {
		t.Error("output should mention template bank")
	}
}

func TestRun_NilBankFails(t *testing.T) {
	var out strings.Builder
	result := doctor.Run(doctor.Config{}, &out)

	if !result.Failed() {
		t.Fatal("expected failure for nil bank")
	}
	if !hasFailureContaining(result.Failures(), "bank") {
		t.Errorf("expected failure mentioning bank, got: %v", result.Failures())
	}
}

func TestRun_RankExceedsDimensionsFails(t *testing.T) {
	bank := buildBank(t)

	var out strings.Builder
	result := doctor.Run(doctor.Config{Bank: bank, Rank: 99}, &out)

	if !result.Failed() {
		t.Fatal("expected failure for rank exceeding bank dimensions")
	}
	if !hasFailureContaining(result.Failures(), "rank") {
		t.Errorf("expected failure mentioning rank, got: %v", result.Failures())
	}
}

func TestRun_ExcludedDegenerateTemplatesFail(t *testing.T) {
	wave := make([]float32, 16*2)
	for i := range wave {
		wave[i] = float32(i%7) - 3
	}

	zero := make([]float32, 16*2)

	bank, err := template.NewBank(template.Config{
		L:               16,
		C:               2,
		Waveforms:       [][]float32{wave, zero},
		AllowDegenerate: true,
	})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	var out strings.Builder
	result := doctor.Run(doctor.Config{Bank: bank, Rank: 1}, &out)

	if !result.Failed() {
		t.Fatal("expected failure for excluded degenerate template")
	}
}

func TestRun_OutputContainsPassAndFailMarkers(t *testing.T) {
	bank := buildBank(t)

	var out strings.Builder
	doctor.Run(doctor.Config{Bank: bank, Rank: 99}, &out)

	body := out.String()
	if !strings.Contains(body, doctor.PassMark) {
		t.Errorf("output missing pass marker %q:\n%s", doctor.PassMark, body)
	}
	if !strings.Contains(body, doctor.FailMark) {
		t.Errorf("output missing fail marker %q:\n%s", doctor.FailMark, body)
	}
}

func hasFailureContaining(failures []string, substr string) bool {
	substr = strings.ToLower(substr)
	for _, f := range failures {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}
	return false
}
