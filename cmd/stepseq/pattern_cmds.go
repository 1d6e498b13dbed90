package main

import (
	"fmt"
	"strings"

	"github.com/james-see/stepseq/pkg/pattern"
	"github.com/spf13/cobra"
)

var (
	newRows  int
	newBars  int
	newSteps int

	barIndex   int
	density    float64
	minVel     int
	maxVel     int
	humanAmt   int
	seed       uint64
	copyFrom   int
	copyTo     int
	resizeBars int
	resizeStep int
	rowIndex   int
	rowName    string
	rowNote    int
)

var newCmd = &cobra.Command{
	Use:   "new <file.json>",
	Short: "Create an empty pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runNew,
}

var randomizeCmd = &cobra.Command{
	Use:   "randomize <file.json>",
	Short: "Fill a bar with random hits",
	Args:  cobra.ExactArgs(1),
	RunE:  runRandomize,
}

var humanizeCmd = &cobra.Command{
	Use:   "humanize <file.json>",
	Short: "Nudge the velocities of a bar's hits",
	Args:  cobra.ExactArgs(1),
	RunE:  runHumanize,
}

var copyBarCmd = &cobra.Command{
	Use:   "copy-bar <file.json>",
	Short: "Copy one bar over another",
	Args:  cobra.ExactArgs(1),
	RunE:  runCopyBar,
}

var resizeCmd = &cobra.Command{
	Use:   "resize <file.json>",
	Short: "Change the bar count or bar resolution",
	Args:  cobra.ExactArgs(1),
	RunE:  runResize,
}

var rowCmd = &cobra.Command{
	Use:   "row <file.json>",
	Short: "Rename a row or change its MIDI note",
	Args:  cobra.ExactArgs(1),
	RunE:  runRow,
}

var showCmd = &cobra.Command{
	Use:   "show <file.json>",
	Short: "Print a pattern as a text grid",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	// new command
	newCmd.Flags().IntVar(&newRows, "rows", 0, "Rows (default from config)")
	newCmd.Flags().IntVar(&newBars, "bars", 0, "Bars (default from config)")
	newCmd.Flags().IntVar(&newSteps, "steps", 0, "Steps per bar (default from config)")

	// randomize command
	randomizeCmd.Flags().IntVar(&barIndex, "bar", 0, "Bar index (0-based)")
	randomizeCmd.Flags().Float64Var(&density, "density", 0.5, "Hit probability 0-1")
	randomizeCmd.Flags().IntVar(&minVel, "min", 60, "Minimum velocity")
	randomizeCmd.Flags().IntVar(&maxVel, "max", pattern.MaxVelocity, "Maximum velocity")
	randomizeCmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default random)")

	// humanize command
	humanizeCmd.Flags().IntVar(&barIndex, "bar", 0, "Bar index (0-based)")
	humanizeCmd.Flags().IntVar(&humanAmt, "amount", 10, "Maximum velocity offset")
	humanizeCmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default random)")

	// copy-bar command
	copyBarCmd.Flags().IntVar(&copyFrom, "from", 0, "Source bar (0-based)")
	copyBarCmd.Flags().IntVar(&copyTo, "to", 0, "Destination bar (0-based)")
	_ = copyBarCmd.MarkFlagRequired("from")
	_ = copyBarCmd.MarkFlagRequired("to")

	// resize command
	resizeCmd.Flags().IntVar(&resizeBars, "bars", 0, "New bar count")
	resizeCmd.Flags().IntVar(&resizeStep, "steps", 0, "New steps per bar")

	// row command
	rowCmd.Flags().IntVar(&rowIndex, "row", 0, "Row index (0-based)")
	rowCmd.Flags().StringVar(&rowName, "name", "", "Row name")
	rowCmd.Flags().IntVar(&rowNote, "note", 0, "MIDI note 0-127")
	_ = rowCmd.MarkFlagRequired("row")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(randomizeCmd)
	rootCmd.AddCommand(humanizeCmd)
	rootCmd.AddCommand(copyBarCmd)
	rootCmd.AddCommand(resizeCmd)
	rootCmd.AddCommand(rowCmd)
	rootCmd.AddCommand(showCmd)
}

// editPattern loads a pattern, applies fn and saves it back
func editPattern(path string, fn func(p *pattern.Pattern) error) error {
	p, err := pattern.Load(path)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	return p.Save(path)
}

// seededRand returns nil (time-seeded) unless --seed was given
func seededRand(cmd *cobra.Command) pattern.Rand {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	return pattern.NewRand(seed)
}

func checkBar(p *pattern.Pattern, bar int) error {
	if bar < 0 || bar >= p.Bars() {
		return fmt.Errorf("bar %d out of range (pattern has %d bars)", bar, p.Bars())
	}
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	rows, bars, steps := cfg.Rows, cfg.Bars, cfg.StepsPerBar
	if cmd.Flags().Changed("rows") {
		rows = newRows
	}
	if cmd.Flags().Changed("bars") {
		bars = newBars
	}
	if cmd.Flags().Changed("steps") {
		steps = newSteps
	}

	p := pattern.New(rows, bars, steps)
	if err := p.Save(args[0]); err != nil {
		return err
	}
	fmt.Printf("Created %s (%d rows, %d bars, %d steps per bar)\n", args[0], p.Rows(), p.Bars(), p.StepsPerBar())
	return nil
}

func runRandomize(cmd *cobra.Command, args []string) error {
	return editPattern(args[0], func(p *pattern.Pattern) error {
		if err := checkBar(p, barIndex); err != nil {
			return err
		}
		p.RandomizeBar(barIndex, density, minVel, maxVel, seededRand(cmd))
		fmt.Printf("Randomized bar %d of %s\n", barIndex, args[0])
		return nil
	})
}

func runHumanize(cmd *cobra.Command, args []string) error {
	return editPattern(args[0], func(p *pattern.Pattern) error {
		if err := checkBar(p, barIndex); err != nil {
			return err
		}
		p.HumanizeBar(barIndex, humanAmt, seededRand(cmd))
		fmt.Printf("Humanized bar %d of %s\n", barIndex, args[0])
		return nil
	})
}

func runCopyBar(cmd *cobra.Command, args []string) error {
	return editPattern(args[0], func(p *pattern.Pattern) error {
		if err := checkBar(p, copyFrom); err != nil {
			return err
		}
		if err := checkBar(p, copyTo); err != nil {
			return err
		}
		p.CopyBar(copyFrom)
		p.PasteBar(copyTo)
		fmt.Printf("Copied bar %d -> %d\n", copyFrom, copyTo)
		return nil
	})
}

func runResize(cmd *cobra.Command, args []string) error {
	return editPattern(args[0], func(p *pattern.Pattern) error {
		if cmd.Flags().Changed("bars") {
			p.SetBars(resizeBars)
		}
		if cmd.Flags().Changed("steps") {
			p.SetStepsPerBar(resizeStep)
		}
		fmt.Printf("Resized %s to %d bars, %d steps per bar\n", args[0], p.Bars(), p.StepsPerBar())
		return nil
	})
}

func runRow(cmd *cobra.Command, args []string) error {
	return editPattern(args[0], func(p *pattern.Pattern) error {
		if rowIndex < 0 || rowIndex >= p.Rows() {
			return fmt.Errorf("row %d out of range (pattern has %d rows)", rowIndex, p.Rows())
		}
		meta := p.RowMeta(rowIndex)
		name, note := meta.Name, int(meta.MIDINote)
		if cmd.Flags().Changed("name") {
			name = rowName
		}
		if cmd.Flags().Changed("note") {
			note = rowNote
		}
		p.SetRowMeta(rowIndex, name, note)
		meta = p.RowMeta(rowIndex)
		fmt.Printf("Row %d: %s (note %d)\n", rowIndex, meta.Name, meta.MIDINote)
		return nil
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	p, err := pattern.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Print(renderGrid(p))
	return nil
}

// renderGrid draws one line per row with bars separated by '|'
func renderGrid(p *pattern.Pattern) string {
	var s strings.Builder
	for r := 0; r < p.Rows(); r++ {
		meta := p.RowMeta(r)
		fmt.Fprintf(&s, "%-14s %3d ", meta.Name, meta.MIDINote)
		for b := 0; b < p.Bars(); b++ {
			s.WriteByte('|')
			for st := 0; st < p.StepsPerBar(); st++ {
				s.WriteByte(cellGlyph(p.Velocity(r, b, st)))
			}
		}
		s.WriteString("|\n")
	}
	return s.String()
}

func cellGlyph(v uint8) byte {
	switch {
	case v == 0:
		return '.'
	case v < 64:
		return 'o'
	default:
		return 'X'
	}
}
