package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Preset is a named difficulty level.
type Preset struct {
	Name       string  `yaml:"name"`
	Depth      int     `yaml:"depth"`
	EvalFactor float64 `yaml:"eval-factor"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

var loadPresets = sync.OnceValues(func() ([]Preset, error) {
	return parsePresets(presetsYAML)
})

func parsePresets(data []byte) ([]Preset, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding presets: %w", err)
	}
	for _, p := range f.Presets {
		if p.Name == "" || p.Depth <= 0 || p.EvalFactor < 0 {
			return nil, fmt.Errorf("%w: preset %+v", ErrInvalidSetting, p)
		}
	}
	return f.Presets, nil
}

// Presets lists the built-in difficulty presets.
func Presets() []Preset {
	presets, err := loadPresets()
	if err != nil {
		panic(err)
	}
	return presets
}

// PresetNames lists the preset names in declaration order.
func PresetNames() []string {
	return lo.Map(Presets(), func(p Preset, _ int) string { return p.Name })
}

// LookupPreset finds a preset by name, ignoring case. Unknown names are an
// error rather than a silent default.
func LookupPreset(name string) (Preset, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	p, ok := lo.Find(Presets(), func(p Preset) bool { return p.Name == want })
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (choose one of %s)", ErrUnknownDifficulty,
			name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}
