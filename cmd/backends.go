package cmd

import (
	"context"
	"sort"
	"time"

	"github.com/beatpad/beatpad/graph"
	"github.com/beatpad/beatpad/oto"
	"github.com/beatpad/beatpad/output"
)

// Backends are the audio outputs the programs can choose from by name.
var Backends = map[string]func() output.Backend{
	"oto":      func() output.Backend { return oto.Backend{} },
	"headless": func() output.Backend { return &output.HeadlessBackend{} },
}

func BackendNames() []string {
	ret := make([]string, 0, len(Backends))
	for name := range Backends {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// PumpHeadless renders the device of a headless backend in real time, in
// blocks of period, until ctx is done. Other backends pull the audio
// themselves and are left alone.
func PumpHeadless(ctx context.Context, b output.Backend, sampleRate int, period time.Duration) {
	hb, ok := b.(*output.HeadlessBackend)
	if !ok {
		return
	}
	if sampleRate <= 0 {
		sampleRate = graph.DefaultSampleRate
	}
	frames := int(float64(sampleRate) * period.Seconds())
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dev := hb.Device(); dev != nil {
				dev.Render(frames)
			}
		}
	}
}
