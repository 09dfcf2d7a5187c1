package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"reddiscribe/internal/writer"
)

var (
	writeDraftOnly bool

	refineCurrent string
	refineSource  string
)

var writeCmd = &cobra.Command{
	Use:   "write [text]",
	Short: "Turn native-language text into a Reddit-ready English post",
	Long: `Runs the two-stage write pipeline: a faithful English draft first,
then a Reddit-tone polish. Text comes from the arguments or stdin.

Ctrl-C stops the run; partial output is kept and printed.`,
	RunE: runWrite,
}

var refineCmd = &cobra.Command{
	Use:   "refine <instruction>",
	Short: "Refine a produced translation conversationally",
	Long: `Asks the persona model to act on an instruction about a previously
produced text. Pass the text via --current or stdin. When the reply
proposes a revision, the revised text is printed after the reply.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRefine,
}

func init() {
	writeCmd.Flags().BoolVar(&writeDraftOnly, "draft-only", false, "Stop after the draft stage")

	refineCmd.Flags().StringVar(&refineCurrent, "current", "", "The text to refine (stdin when omitted)")
	refineCmd.Flags().StringVar(&refineSource, "source", "", "The original native-language text, for context")
}

func runWrite(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	source, err := textFromArgsOrStdin(args)
	if err != nil {
		return err
	}

	bundle := theApp.Bundle()
	run, err := theApp.Writer().Run(ctx, source, writeDraftOnly)
	if errors.Is(err, writer.ErrEmptyInput) {
		return errors.New(bundle.T("writer.empty_input"))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, bundle.T("writer.generating"))

	stage := writer.StateIdle
	for u := range run.Updates() {
		if u.Stage != stage {
			if stage != writer.StateIdle {
				fmt.Println()
			}
			fmt.Printf("── %s ──\n", stageLabel(u.Stage))
			stage = u.Stage
		}
		fmt.Print(u.Fragment)
	}
	fmt.Println()

	res := run.Result()
	if res.Err != nil {
		return humanize(res.Err)
	}
	if res.Stopped {
		fmt.Println(bundle.T("writer.stopped"))
		theApp.Writer().Ack()
	}
	return nil
}

func runRefine(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	current := refineCurrent
	if current == "" {
		var err error
		current, err = textFromArgsOrStdin(nil)
		if err != nil {
			return err
		}
	}

	bundle := theApp.Bundle()
	p := theApp.Writer()
	if err := p.Seed(refineSource, strings.TrimSpace(current)); err != nil {
		return err
	}

	stream, err := p.Refine(ctx, strings.Join(args, " "))
	if errors.Is(err, writer.ErrNoOutput) || errors.Is(err, writer.ErrEmptyInput) {
		return errors.New(bundle.T("writer.empty_input"))
	}
	if err != nil {
		return err
	}

	fmt.Printf("── %s ──\n", bundle.T("writer.refine_header"))
	for frag := range stream.Fragments() {
		fmt.Print(frag)
	}
	fmt.Println()

	res := stream.Result()
	if res.Err != nil {
		return humanize(res.Err)
	}
	if revised := p.Final(); revised != strings.TrimSpace(current) {
		fmt.Printf("\n── %s ──\n%s\n", bundle.T("writer.final_label"), revised)
	}
	return nil
}

func stageLabel(s writer.State) string {
	if s == writer.StatePolishing {
		return theApp.Bundle().T("writer.final_label")
	}
	return theApp.Bundle().T("writer.draft_label")
}

// textFromArgsOrStdin joins the arguments, or reads stdin when there
// are none and stdin is not a terminal.
func textFromArgsOrStdin(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
