package beatpad

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPattern is wrapped by every error DecodePattern returns for data
// that does not have the shape of a pattern.
var ErrInvalidPattern = errors.New("invalid pattern")

// DecodePattern parses a pattern stored as JSON or YAML. The data is checked
// field by field before it is accepted: id and name must be strings, bpm a
// number, every track needs a string soundId, a soundType of drum or synth
// and a steps array of {active: bool} objects. The returned pattern is
// normalized.
func DecodePattern(data []byte) (Pattern, error) {
	var raw any
	if errJSON := json.Unmarshal(data, &raw); errJSON != nil {
		if errYaml := yaml.Unmarshal(data, &raw); errYaml != nil {
			return Pattern{}, fmt.Errorf("%w: %v / %v", ErrInvalidPattern, errYaml, errJSON)
		}
	}
	p, err := patternFromRaw(raw)
	if err != nil {
		return Pattern{}, err
	}
	p.Normalize()
	return p, nil
}

// LoadPatternOrDefault decodes data, or returns a copy of def when data is
// not a valid pattern.
func LoadPatternOrDefault(data []byte, def Pattern, log logrus.FieldLogger) Pattern {
	p, err := DecodePattern(data)
	if err != nil {
		if log != nil {
			log.WithError(err).Warn("invalid stored pattern, using default")
		}
		return def.Copy()
	}
	return p
}

// EncodePattern serializes a pattern. Format "json" (or a path ending in
// .json) gives JSON, anything else YAML.
func EncodePattern(p Pattern, format string) ([]byte, error) {
	if format == "json" || strings.EqualFold(filepath.Ext(format), ".json") {
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("cannot marshal pattern to json: %w", err)
		}
		return b, nil
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal pattern to yaml: %w", err)
	}
	return b, nil
}

func invalid(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidPattern, path, fmt.Sprintf(format, args...))
}

// number accepts finite numbers only.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func patternFromRaw(raw any) (Pattern, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Pattern{}, invalid("pattern", "not an object")
	}
	var p Pattern
	if p.ID, ok = m["id"].(string); !ok {
		return Pattern{}, invalid("id", "not a string")
	}
	if p.Name, ok = m["name"].(string); !ok {
		return Pattern{}, invalid("name", "not a string")
	}
	if p.BPM, ok = number(m["bpm"]); !ok {
		return Pattern{}, invalid("bpm", "not a number")
	}
	tracks, ok := m["tracks"].([]any)
	if !ok {
		return Pattern{}, invalid("tracks", "not an array")
	}
	p.Tracks = make([]Track, 0, len(tracks))
	for i, rt := range tracks {
		t, err := trackFromRaw(fmt.Sprintf("tracks[%d]", i), rt)
		if err != nil {
			return Pattern{}, err
		}
		p.Tracks = append(p.Tracks, t)
	}
	return p, nil
}

func trackFromRaw(path string, raw any) (Track, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Track{}, invalid(path, "not an object")
	}
	var t Track
	if t.SoundID, ok = m["soundId"].(string); !ok {
		return Track{}, invalid(path+".soundId", "not a string")
	}
	st, _ := m["soundType"].(string)
	if t.SoundType = SoundType(st); !t.SoundType.Valid() {
		return Track{}, invalid(path+".soundType", "must be %q or %q", SoundTypeDrum, SoundTypeSynth)
	}
	if v, present := m["volume"]; present && v != nil {
		vol, ok := number(v)
		if !ok {
			return Track{}, invalid(path+".volume", "not a number")
		}
		t.Volume = &vol
	}
	steps, ok := m["steps"].([]any)
	if !ok {
		return Track{}, invalid(path+".steps", "not an array")
	}
	t.Steps = make([]Step, len(steps))
	for i, rs := range steps {
		sm, ok := rs.(map[string]any)
		if !ok {
			return Track{}, invalid(fmt.Sprintf("%s.steps[%d]", path, i), "not an object")
		}
		if t.Steps[i].Active, ok = sm["active"].(bool); !ok {
			return Track{}, invalid(fmt.Sprintf("%s.steps[%d].active", path, i), "not a boolean")
		}
	}
	return t, nil
}
