package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-refqa-server/internal/app"
	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/corpus"
	"github.com/sha1n/mcp-refqa-server/internal/qa"
	"github.com/sha1n/mcp-refqa-server/internal/report"
)

func newAnswerCommand() *cobra.Command {
	var output string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "answer <questions-file>",
		Short: "Answer a question document and write the report",
		Long: `Loads the reference corpus, answers every numbered question in the given
PDF or text file and writes the plain-text report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswer(cmd.Context(), cmd.Flags(), args[0], output, quiet, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", report.DefaultFilename, "Report output path")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Do not show load progress")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	app.RegisterReferenceFlags(flags)
	app.RegisterQuestionFlags(flags)

	return cmd
}

func runAnswer(ctx context.Context, flags *pflag.FlagSet, input, output string, quiet bool, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := loadCommandSettings(flags, stderr)
	if err != nil {
		return err
	}

	refs, err := corpus.NewService(&settings.References)
	if err != nil {
		return err
	}
	defer func() { _ = refs.Close() }()

	if !quiet {
		names, err := refs.ListFilenames()
		if err != nil {
			return err
		}
		bar := newProgressBar(len(names), "Loading references", stderr)
		var mu sync.Mutex
		refs.Loader().SetProgress(func(filename string, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				_ = bar.Clear()
				color.New(color.FgRed).Fprintf(stderr, "Failed to load %s: %v\n", filename, err)
			}
			_ = bar.Add(1)
		})
		defer func() { _ = bar.Finish() }()
	}

	loadReport, err := refs.Reload(ctx)
	if err != nil {
		return err
	}

	svc := qa.NewService(&settings.Questions, refs, refs.Decoder())
	session, err := openSession(ctx, svc, input)
	if err != nil {
		return fmt.Errorf("%s: %w", svc.UserMessage(err), err)
	}

	session, err = svc.Answer(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", svc.UserMessage(err), err)
	}

	if err := report.WriteFile(output, session.Questions); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(stdout, "Answered %d of %d questions using %d reference documents\n",
		session.AnsweredCount(), len(session.Questions), len(loadReport.Loaded))
	if len(loadReport.Failed) > 0 {
		color.New(color.FgYellow).Fprintf(stdout, "%d reference documents failed to load\n", len(loadReport.Failed))
	}
	fmt.Fprintf(stdout, "Report written to %s\n", output)
	return nil
}

// openSession uploads a PDF as-is and reads any other file as question text.
func openSession(ctx context.Context, svc *qa.Service, path string) (qa.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return qa.Session{}, err
	}
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(name), qa.UploadExtension) {
		return svc.Upload(ctx, name, data)
	}
	return svc.LoadText(ctx, name, string(data))
}

func loadCommandSettings(flags *pflag.FlagSet, stderr io.Writer) (*config.Settings, error) {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	slog.SetDefault(config.NewLogger(settings, stderr))
	return settings, nil
}

func newProgressBar(total int, description string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
