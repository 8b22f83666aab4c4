package template

import (
	"encoding/json"
	"fmt"
	"os"
)

// bankFile is the on-disk JSON representation of a template bank: the
// waveform-extractor collaborator's output (spec §6 "Inputs"). Each
// entry's Waveform is the dense L*C row-major array; Mask is optional
// and falls back to ptp-threshold inference when omitted.
type bankFile struct {
	L                 int         `json:"l"`
	C                 int         `json:"c"`
	SparsityThreshold float64     `json:"sparsity_threshold"`
	Templates         []bankEntry `json:"templates"`
}

type bankEntry struct {
	Waveform []float32 `json:"waveform"`
	Mask     []int     `json:"mask,omitempty"`
}

// LoadBank reads a JSON-serialized template bank from path (spec §6
// "collaborator-supplied" template bank input).
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read bank file: %w", err)
	}

	var bf bankFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("template: decode bank file: %w", err)
	}

	cfg := Config{
		L:                 bf.L,
		C:                 bf.C,
		SparsityThreshold: bf.SparsityThreshold,
		Waveforms:         make([][]float32, len(bf.Templates)),
	}

	haveMasks := false
	masks := make([][]int, len(bf.Templates))

	for i, t := range bf.Templates {
		cfg.Waveforms[i] = t.Waveform
		if t.Mask != nil {
			haveMasks = true
		}
		masks[i] = t.Mask
	}

	if haveMasks {
		cfg.Masks = masks
	}

	return NewBank(cfg)
}
