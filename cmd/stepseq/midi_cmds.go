package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/james-see/stepseq/pkg/api"
	"github.com/james-see/stepseq/pkg/config"
	"github.com/james-see/stepseq/pkg/export"
	"github.com/james-see/stepseq/pkg/logging"
	"github.com/james-see/stepseq/pkg/midiout"
	"github.com/james-see/stepseq/pkg/pattern"
	"github.com/james-see/stepseq/pkg/scheduler"
	"github.com/james-see/stepseq/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	outputFile string
	bpm        float64
	swing      float64
	metronome  bool
	portName   string
	dryRun     bool
	barsLimit  int
	importRows int
	logFile    string
	serverPort int
	saveConfig bool
)

var exportCmd = &cobra.Command{
	Use:   "export <file.json>",
	Short: "Render a pattern to a Standard MIDI File",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.mid>",
	Short: "Quantize a MIDI file onto a 16-step pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "List the tempo and note events of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var playCmd = &cobra.Command{
	Use:   "play <file.json>",
	Short: "Play a pattern to a MIDI output port",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	RunE:  runPorts,
}

var tuiCmd = &cobra.Command{
	Use:   "tui <file.json>",
	Short: "Play a pattern with an interactive transport view",
	Args:  cobra.ExactArgs(1),
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE:  runConfig,
}

func init() {
	// export command
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	exportCmd.Flags().Float64Var(&bpm, "bpm", pattern.DefaultBPM, "Tempo")

	// import command
	importCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .json file path")
	importCmd.Flags().IntVar(&importRows, "rows", pattern.DefaultRows, "Maximum rows to create")

	// play and tui commands
	for _, c := range []*cobra.Command{playCmd, tuiCmd} {
		c.Flags().Float64Var(&bpm, "bpm", pattern.DefaultBPM, "Tempo (default from config)")
		c.Flags().Float64Var(&swing, "swing", 0, "Swing 0-0.5 (default from config)")
		c.Flags().BoolVar(&metronome, "metronome", false, "Click on quarter notes")
		c.Flags().StringVarP(&portName, "port", "p", "", "Output port name or index (default from config, else first port)")
		c.Flags().BoolVar(&dryRun, "dry-run", false, "Record notes instead of sending them")
	}
	playCmd.Flags().IntVar(&barsLimit, "bars-limit", 0, "Stop after this many bars (0 plays until interrupted)")
	tuiCmd.Flags().StringVar(&logFile, "log-file", "", "Log file while the UI is open (default <config dir>/stepseq.log)")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// config command
	configCmd.Flags().BoolVar(&saveConfig, "save", false, "Write the effective configuration to the config file")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runExport(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".mid")

	tempo := cfg.BPM
	if cmd.Flags().Changed("bpm") {
		tempo = bpm
	}

	p, err := pattern.Load(input)
	if err != nil {
		return err
	}
	exp := &export.Exporter{TicksPerBeat: cfg.TicksPerBeat}
	if err := exp.WriteFile(p, tempo, output); err != nil {
		return err
	}

	fmt.Printf("Exported %s -> %s\n", input, output)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".json")

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	p, tempo, err := export.Import(data, importRows)
	if err != nil {
		return err
	}
	if err := p.Save(output); err != nil {
		return err
	}

	fmt.Printf("Imported %s -> %s (%d rows, %d bars, %.1f BPM)\n", input, output, p.Rows(), p.Bars(), tempo)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	sum, err := export.Inspect(data)
	if err != nil {
		return err
	}

	fmt.Printf("Tracks: %d  Resolution: %d ticks/beat  Tempo: %.1f BPM\n", sum.Tracks, sum.TicksPerBeat, sum.BPM)
	var tick uint64
	for _, ev := range sum.Events {
		tick += uint64(ev.Delta)
		switch ev.Kind {
		case export.EventTempo:
			fmt.Printf("%8d %+6d  %-8s %d us/beat\n", tick, ev.Delta, ev.Kind, ev.Tempo)
		default:
			fmt.Printf("%8d %+6d  %-8s ch %2d note %3d vel %3d\n", tick, ev.Delta, ev.Kind, ev.Channel+1, ev.Note, ev.Velocity)
		}
	}
	return nil
}

// newScheduler builds a scheduler for p from config and flags, bound to the
// requested output. The returned func releases the output.
func newScheduler(cmd *cobra.Command, p *pattern.Pattern) (*scheduler.Scheduler, func(), error) {
	opts := scheduler.Options{
		BPM:       cfg.BPM,
		Swing:     cfg.Swing,
		Metronome: cfg.Metronome,
		Logger:    log,
	}
	if cmd.Flags().Changed("bpm") {
		opts.BPM = bpm
	}
	if cmd.Flags().Changed("swing") {
		opts.Swing = swing
	}
	if cmd.Flags().Changed("metronome") {
		opts.Metronome = metronome
	}
	s := scheduler.New(p, opts)

	if dryRun {
		rec := midiout.NewRecorder()
		s.SetEmitter(rec)
		return s, func() {
			log.WithField("messages", len(rec.Messages())).Info("dry run finished")
		}, nil
	}

	query := cfg.OutputPort
	if cmd.Flags().Changed("port") {
		query = portName
	}
	if query == "" {
		query = "0"
	}
	port, err := midiout.Open(query, midiout.DefaultScanTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output %q (try --dry-run or 'stepseq ports'): %w", query, err)
	}
	s.SetEmitter(port)
	log.WithField("port", port.Name()).Info("output opened")

	return s, func() {
		if err := port.Close(); err != nil {
			log.WithError(err).Warn("failed to close output")
		}
	}, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	p, err := pattern.Load(args[0])
	if err != nil {
		return err
	}
	s, release, err := newScheduler(cmd, p)
	if err != nil {
		return err
	}
	defer release()

	done := make(chan struct{})
	if barsLimit > 0 {
		total := barsLimit * p.StepsPerBar()
		played := 0
		s.OnStep(func(scheduler.Position) {
			played++
			if played == total {
				close(done)
			}
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Start()
	fmt.Printf("Playing %s at %.0f BPM (ctrl+c to stop)\n", args[0], s.Tempo())
	select {
	case <-ctx.Done():
	case <-done:
	}
	s.Stop()
	fmt.Println("Stopped")
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := midiout.ListPorts(midiout.DefaultScanTimeout)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No MIDI output ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Printf("%3d  %s\n", p.Number(), p.String())
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	path := logFile
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "stepseq.log")
	}
	closer, err := logging.ToFile(log, path)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	p, err := pattern.Load(args[0])
	if err != nil {
		return err
	}
	s, release, err := newScheduler(cmd, p)
	if err != nil {
		return err
	}
	defer release()

	return tui.Run(s, args[0])
}

func runServe(cmd *cobra.Command, args []string) error {
	flush, err := api.InitSentry(os.Getenv("SENTRY_DSN"))
	if err != nil {
		return err
	}
	defer flush()

	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort, log)
}

func runConfig(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	if !saveConfig {
		return nil
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path, _ = config.Path()
	}
	fmt.Printf("Saved %s\n", path)
	return nil
}
