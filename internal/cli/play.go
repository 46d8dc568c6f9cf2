package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/config"
	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/export"
)

type playOptions struct {
	notesPath  string
	imagePath  string
	capture    string
	difficulty string
	count      int
	language   string
	topic      string
	outDir     string
	formats    []string
}

// NewPlayCmd runs a single learner flow in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	opts := playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Generate a quiz from notes or a photo and take it in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(*configPath)
			if err != nil {
				return err
			}
			if opts.capture != "" {
				cfg.Capture.Device = opts.capture
			}
			if cfg.Postgres.URL != "" {
				if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			service, cleanup, err := buildService(cmd.Context(), cfg)
			defer cleanup()
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), service, opts)
		},
	}

	cmd.Flags().StringVar(&opts.notesPath, "notes", "", "path to a text file of study notes")
	cmd.Flags().StringVar(&opts.imagePath, "image", "", "path to a JPEG photo of notes")
	cmd.Flags().StringVar(&opts.capture, "capture", "", "capture device path; scans a frame instead of reading notes")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "Medium", "Easy, Medium or Hard")
	cmd.Flags().IntVar(&opts.count, "count", domain.DefaultCount, "number of questions (5-20)")
	cmd.Flags().StringVar(&opts.language, "language", "", "quiz language (defaults to config)")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "optional topic hint")
	cmd.Flags().StringVar(&opts.outDir, "out", ".", "directory for result exports")
	cmd.Flags().StringSliceVar(&opts.formats, "export", []string{"json", "csv"}, "export formats written after each attempt (json, csv, xlsx)")
	return cmd
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer, service *app.QuizService, opts playOptions) error {
	formats := make([]export.Format, 0, len(opts.formats))
	for _, raw := range opts.formats {
		f, err := export.ParseFormat(raw)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	req := domain.GenerationRequest{
		Difficulty: domain.Difficulty(opts.difficulty),
		Count:      opts.count,
		Language:   opts.language,
		Topic:      opts.topic,
	}

	flow := service.Open(ctx, "terminal")
	defer service.Close(ctx, "terminal")

	fmt.Fprintln(out, "Generating quiz...")
	var err error
	switch {
	case opts.capture != "":
		err = flow.Scan(ctx, req)
	case opts.imagePath != "":
		req.Image, err = os.ReadFile(opts.imagePath)
		if err == nil {
			err = flow.Generate(ctx, req)
		}
	case opts.notesPath != "":
		var notes []byte
		notes, err = os.ReadFile(opts.notesPath)
		if err == nil {
			req.Notes = string(notes)
			err = flow.Generate(ctx, req)
		}
	default:
		return fmt.Errorf("one of --notes, --image or --capture is required")
	}
	if err != nil {
		if msg := flow.Snapshot().Error; msg != "" {
			fmt.Fprintln(out, msg)
		}
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		result, err := takeQuiz(scanner, out, flow)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintln(out, "Quiz abandoned.")
			return nil
		}

		snap := flow.Snapshot()
		printSummary(out, snap)
		for _, f := range formats {
			data, name, err := flow.Export(f)
			if err != nil {
				return err
			}
			path := filepath.Join(opts.outDir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved %s\n", path)
		}

		fmt.Fprint(out, "Retake this quiz? [y/N] ")
		if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
			flow.NewPractice()
			return nil
		}
		if err := flow.Retake(); err != nil {
			return err
		}
	}
}

// takeQuiz walks the live session question by question. A nil result means
// the learner exited or input ran out.
func takeQuiz(scanner *bufio.Scanner, out io.Writer, flow *app.Flow) (*domain.QuizResult, error) {
	for {
		snap := flow.Snapshot()
		if snap.Session == nil || snap.Quiz == nil {
			return nil, fmt.Errorf("%w: no live session", domain.ErrInvalidTransition)
		}
		view := *snap.Session
		question := snap.Quiz.Questions[view.CurrentIndex]

		fmt.Fprintf(out, "\n[%s] Question %d of %d (%d%%)\n%s\n", view.Clock, view.CurrentIndex+1, view.Total, view.Progress, question.Prompt)
		for i, opt := range question.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
		}

		for {
			fmt.Fprint(out, "Answer (number, q to exit): ")
			if !scanner.Scan() {
				_ = flow.Exit()
				return nil, scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if strings.EqualFold(line, "q") {
				_ = flow.Exit()
				return nil, nil
			}
			choice, err := strconv.Atoi(line)
			if err != nil || flow.Select(view.CurrentIndex, choice-1) != nil {
				fmt.Fprintln(out, "Please pick one of the listed options.")
				continue
			}
			break
		}
		if err := flow.Confirm(view.CurrentIndex); err != nil {
			return nil, err
		}

		if locked := flow.Snapshot().Session; locked != nil && locked.Feedback != nil {
			if locked.Feedback.Correct {
				fmt.Fprintln(out, "Correct!")
			} else {
				fmt.Fprintf(out, "Incorrect. Answer: %s\n", question.OptionText(locked.Feedback.CorrectOption))
			}
			if locked.Feedback.Explanation != "" {
				fmt.Fprintln(out, locked.Feedback.Explanation)
			}
		}

		result, err := flow.Advance(view.CurrentIndex)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
}

func printSummary(out io.Writer, snap domain.FlowSnapshot) {
	if snap.Result == nil || snap.Summary == nil {
		return
	}
	fmt.Fprintf(out, "\nScore: %d/%d (%d%%) in %s\n%s\n", snap.Result.Score, snap.Result.Total, snap.Summary.Accuracy, snap.Summary.TimeLabel, snap.Summary.Message)
	if snap.Quiz != nil && len(snap.Quiz.WeakAreas) > 0 {
		fmt.Fprintf(out, "Review: %s\n", strings.Join(snap.Quiz.WeakAreas, ", "))
	}
}
