package experiment

// Mode selects how a run obtains its starting configuration. It is consumed
// once at the start of Runner.Run.
type Mode interface {
	modeName() string
}

// Fresh starts from particles drawn uniformly in [-XMax, XMax]² and discards
// anything previously stored under the run id.
type Fresh struct {
	XMax float64
}

// Resume continues from the configuration, series and histogram persisted
// by an earlier run with the same id.
type Resume struct{}

func (Fresh) modeName() string  { return "fresh" }
func (Resume) modeName() string { return "resume" }

func ModeName(m Mode) string {
	if m == nil {
		return ""
	}
	return m.modeName()
}
