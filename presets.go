package beatpad

import (
	"embed"
	"io/fs"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

//go:embed presets/*.yml
var presetFS embed.FS

type (
	// presetFile is the compact on-disk form of a preset: only the active
	// step indices of each sound are listed.
	presetFile struct {
		ID     string        `yaml:"id"`
		BPM    float64       `yaml:"bpm"`
		Tracks []presetTrack `yaml:"tracks"`
	}

	presetTrack struct {
		Sound  string `yaml:"sound"`
		Active []int  `yaml:"active,flow"`
	}
)

var loadPresets = sync.OnceValue(func() []Pattern {
	var ret []Pattern
	entries, err := fs.ReadDir(presetFS, "presets")
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := fs.ReadFile(presetFS, path.Join("presets", e.Name()))
		if err != nil {
			continue
		}
		var f presetFile
		if yaml.UnmarshalStrict(data, &f) != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		ret = append(ret, f.pattern(filenameToPatternName(name)))
	}
	return ret
})

func filenameToPatternName(filename string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(filename, "_", " "))
}

func (f *presetFile) pattern(name string) Pattern {
	p := DefaultPattern()
	p.ID = f.ID
	p.Name = name
	p.BPM = ClampBPM(f.BPM)
	for _, t := range f.Tracks {
		i := p.TrackIndex(t.Sound)
		if i < 0 {
			p.Tracks = append(p.Tracks, NewTrack(t.Sound, SoundTypeOf(t.Sound)))
			i = len(p.Tracks) - 1
		}
		for _, s := range t.Active {
			if s >= 0 && s < MaxSteps {
				p.Tracks[i].Steps[s].Active = true
			}
		}
	}
	return p
}

// Presets returns copies of the built-in patterns, sorted by file name.
func Presets() []Pattern {
	presets := loadPresets()
	ret := make([]Pattern, len(presets))
	for i := range presets {
		ret[i] = presets[i].Copy()
	}
	return ret
}

// Preset returns a copy of the built-in pattern with the given id.
func Preset(id string) (Pattern, bool) {
	for _, p := range loadPresets() {
		if p.ID == id {
			return p.Copy(), true
		}
	}
	return Pattern{}, false
}
