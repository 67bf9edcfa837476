package nn

import (
	"encoding/json"
	"fmt"
	"os"
)

// Snapshot is the serialized form of a network.
type Snapshot struct {
	Sizes  []int     `json:"sizes"`
	Params []float64 `json:"params"`
}

func (n *Network) Snapshot() Snapshot {
	return Snapshot{
		Sizes:  n.Sizes(),
		Params: append([]float64(nil), n.params...),
	}
}

func FromSnapshot(s Snapshot) (*Network, error) {
	n, err := newEmpty(s.Sizes)
	if err != nil {
		return nil, err
	}
	if len(s.Params) != len(n.params) {
		return nil, fmt.Errorf("%w: snapshot has %d params, topology %v needs %d", ErrShapeMismatch, len(s.Params), s.Sizes, len(n.params))
	}
	copy(n.params, s.Params)
	return n, nil
}

func SaveFile(path string, n *Network) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(n.Snapshot())
}

func LoadFile(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromSnapshot(s)
}
