package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/beatpad/beatpad"
	"github.com/beatpad/beatpad/sequencer"
	"github.com/beatpad/beatpad/version"
)

const gridTemplate = `{{ .Name | upper }} ({{ .ID }}) {{ .BPM }} bpm, {{ .Steps }} steps
{{ repeat (add .Width .Steps 1 | int) "-" }}
{{- range .Tracks }}
{{ .SoundID | trunc $.Width | printf "%-*s" $.Width }} {{ .Cells }}{{ if .Volume }} vol {{ .Volume }}{{ end }}
{{- end }}
`

type (
	gridTrack struct {
		SoundID string
		Cells   string
		Volume  string
	}

	grid struct {
		ID, Name string
		BPM      float64
		Steps    int
		Width    int
		Tracks   []gridTrack
	}
)

func main() {
	presetID := flag.String("preset", "", "Use a built-in preset instead of pattern files.")
	steps := flag.Int("steps", 16, "Number of steps to show: 4, 8, 16 or 32.")
	format := flag.String("o", "grid", "Output format: grid, yaml or json.")
	hideEmpty := flag.Bool("e", false, "Hide tracks without active steps.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	if !beatpad.ValidStepCount(*steps) {
		fmt.Fprintf(os.Stderr, "invalid step count %v, expected one of %v\n", *steps, beatpad.StepCounts)
		os.Exit(2)
	}
	tmpl, err := template.New("grid").Funcs(sprig.TxtFuncMap()).Parse(gridTemplate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not parse grid template: %v\n", err)
		os.Exit(1)
	}
	process := func(p beatpad.Pattern) error {
		switch *format {
		case "grid":
			return tmpl.Execute(os.Stdout, makeGrid(p, *steps, *hideEmpty))
		case "yaml", "json":
			data, err := beatpad.EncodePattern(p, *format)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
		return fmt.Errorf("unknown output format %q", *format)
	}
	if *presetID != "" {
		p, ok := beatpad.Preset(*presetID)
		if !ok {
			fmt.Fprintf(os.Stderr, "no preset %q\n", *presetID)
			os.Exit(1)
		}
		if err := process(p); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	retval := 0
	for _, param := range flag.Args() {
		files := []string{param}
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			ymlfiles, _ := filepath.Glob(filepath.Join(param, "*.yml"))
			jsonfiles, _ := filepath.Glob(filepath.Join(param, "*.json"))
			files = append(ymlfiles, jsonfiles...)
		}
		for _, file := range files {
			if err := processFile(file, process); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func processFile(filename string, process func(beatpad.Pattern) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not open file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("could not read file: %w", err)
	}
	p, err := beatpad.DecodePattern(data)
	if err != nil {
		return err
	}
	return process(p)
}

func makeGrid(p beatpad.Pattern, steps int, hideEmpty bool) grid {
	g := grid{ID: p.ID, Name: p.Name, BPM: p.BPM, Steps: steps, Width: 8}
	for _, t := range p.Tracks {
		var cells strings.Builder
		active := false
		for i := 0; i < steps; i++ {
			switch {
			case t.Active(i):
				cells.WriteByte('x')
				active = true
			case i%sequencer.StepsPerBeat == 0:
				cells.WriteByte('|')
			default:
				cells.WriteByte('.')
			}
		}
		if hideEmpty && !active {
			continue
		}
		gt := gridTrack{SoundID: t.SoundID, Cells: cells.String()}
		if t.Volume != nil {
			gt.Volume = fmt.Sprintf("%.2f", t.Gain())
		}
		if len(t.SoundID) > g.Width {
			g.Width = len(t.SoundID)
		}
		g.Tracks = append(g.Tracks, gt)
	}
	return g
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Beatpad command line utility for showing and converting pattern files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
