// Command compile turns an authored quiz (JSON or YAML) into a single
// self-contained HTML file.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/stemsi/exstem-quiz/internal/cloud"
	"github.com/stemsi/exstem-quiz/internal/compiler"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/model"
)

var (
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

func main() {
	var (
		in        = flag.String("in", "", "quiz file (.json, .yaml or .yml)")
		assets    = flag.String("assets", "", "directory relative image paths resolve against (default: the quiz file's directory)")
		out       = flag.String("out", "", "output file (default: derived from the quiz title)")
		tz        = flag.String("tz", "", "IANA zone for schedule times without an offset (default: UTC)")
		sync      = flag.Bool("sync", false, "push the quiz and its questions to the configured cloud folder")
		libraryID = flag.String("library-id", "", "library entry id to replace when syncing")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, "pretty", os.Stderr)

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := readQuiz(*in)
	if err != nil {
		log.Fatal().Err(err).Str("file", *in).Msg("Failed to read quiz")
	}

	opts := compiler.Options{}
	root := *assets
	if root == "" {
		root = filepath.Dir(*in)
	}
	opts.Assets = os.DirFS(root)
	if *tz != "" {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			log.Fatal().Err(err).Str("tz", *tz).Msg("Unknown time zone")
		}
		opts.Location = loc
	}

	doc, err := compiler.Compile(*data, opts)
	if err != nil {
		var ve *compiler.ValidationError
		if errors.As(err, &ve) {
			printIssues(ve)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Compilation failed")
	}

	dest := *out
	if dest == "" {
		dest = doc.FileName
	}
	if err := os.WriteFile(dest, doc.HTML, 0o644); err != nil {
		log.Fatal().Err(err).Str("file", dest).Msg("Failed to write artifact")
	}
	fmt.Fprintf(os.Stdout, "%s %s (%d questions, %d bytes, id %s)\n",
		okStyle.Render("compiled"), dest, len(doc.Quiz.Questions), len(doc.HTML), doc.ArtifactID)

	if *sync {
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.CloudTimeout)
		defer cancel()
		if err := push(ctx, cloud.NewClient(cfg.CloudTimeout), doc.Quiz, *libraryID, log); err != nil {
			log.Fatal().Err(err).Msg("Cloud sync failed")
		}
	}
}

// readQuiz decodes by extension. Unknown fields are errors in both formats.
func readQuiz(path string) (*model.QuizData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data model.QuizData
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		err = dec.Decode(&data)
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(&data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &data, nil
}

func printIssues(ve *compiler.ValidationError) {
	fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("quiz cannot be compiled: %d issue(s)", len(ve.Issues))))
	for _, issue := range ve.Issues {
		where := issue.Field
		if issue.QuestionID != "" {
			where = "question " + issue.QuestionID + " " + issue.Field
		}
		fmt.Fprintf(os.Stderr, "  %s %s\n", fieldStyle.Render(where), issue.Message)
	}
}

func push(ctx context.Context, client *cloud.Client, quiz *model.QuizData, libraryID string, log zerolog.Logger) error {
	settings := &quiz.Settings
	target := settings.CloudConfig
	switch {
	case settings.OfflineMode:
		log.Warn().Msg("Quiz is in offline mode, nothing synced")
		return nil
	case !target.Enabled():
		return cloud.ErrNotConfigured
	}

	if target.SyncTests {
		entry := cloud.LibraryEntry(libraryID, quiz)
		if err := client.PushTest(ctx, target, entry); err != nil {
			return fmt.Errorf("push test: %w", err)
		}
		log.Info().Str("folder", target.FolderName).Str("test_id", entry.ID).Msg("Quiz saved to library")
	}
	if target.SyncBank {
		questions := cloud.ExportToBank(quiz.Questions, settings)
		if err := client.PushBank(ctx, target, questions); err != nil {
			return fmt.Errorf("push bank: %w", err)
		}
		log.Info().Str("folder", target.FolderName).Int("questions", len(questions)).Msg("Questions added to bank")
	}
	if !target.SyncTests && !target.SyncBank {
		log.Warn().Msg("Neither syncTests nor syncBank is enabled, nothing synced")
	}
	return nil
}
