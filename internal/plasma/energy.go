package plasma

import "math"

// Model evaluates the plasma energy for a fixed charge and quasihole set.
type Model struct {
	m          float64
	quasiholes QuasiholeSet
}

func NewModel(m float64, quasiholes QuasiholeSet) *Model {
	qh := make(QuasiholeSet, len(quasiholes))
	copy(qh, quasiholes)
	return &Model{m: m, quasiholes: qh}
}

func (p Params) Model() *Model {
	return NewModel(p.M, p.Quasiholes)
}

func (m *Model) Charge() float64 { return m.m }

func (m *Model) Quasiholes() QuasiholeSet { return m.quasiholes }

// Energy computes U for the whole configuration. It costs O(N² + N·Nqh) and
// exists for checks and reporting; the sampler only uses DeltaEnergy.
func (m *Model) Energy(c Configuration) float64 {
	pair := 0.0
	for i := 0; i < len(c); i++ {
		for j := i + 1; j < len(c); j++ {
			pair += math.Log(abs2(c[i] - c[j]))
		}
	}

	qh := 0.0
	conf := 0.0
	for _, z := range c {
		for _, w := range m.quasiholes {
			qh += math.Log(abs2(z - w))
		}
		conf += abs2(z)
	}

	// 2 ln|d| == ln|d|²
	return -m.m*pair - qh + conf
}

// DeltaEnergy returns U(after) - U(before) for moving particle i to zNew,
// summing only the terms that involve particle i.
func (m *Model) DeltaEnergy(c Configuration, i int, zNew complex128) float64 {
	zOld := c[i]

	pair := 0.0
	for j, zj := range c {
		if j == i {
			continue
		}
		pair += math.Log(abs2(zNew-zj) / abs2(zOld-zj))
	}

	qh := 0.0
	for _, w := range m.quasiholes {
		qh += math.Log(abs2(zNew-w) / abs2(zOld-w))
	}

	return -m.m*pair - qh + abs2(zNew) - abs2(zOld)
}
