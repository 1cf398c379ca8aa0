// Package compiler turns a QuizData into a single self-contained HTML
// document. Compilation is pure: the same input, including asset bytes,
// always yields the same bytes out.
package compiler

import (
	"bytes"
	"context"
	"encoding/hex"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Options controls how a quiz is compiled.
type Options struct {
	// Assets resolves relative image paths. Nil means only data URIs are
	// accepted.
	Assets fs.FS
	// Location interprets zone-less scheduling times. Defaults to UTC.
	Location *time.Location
}

// Document is a compiled artifact.
type Document struct {
	ArtifactID string
	FileName   string
	HTML       []byte
	// Payload is the embedded JSON: the defaulted, asset-inlined quiz.
	Payload []byte
	Quiz    *model.QuizData
}

// Compile validates data, inlines its assets and renders the document.
// A *ValidationError is returned when the quiz cannot be delivered.
func Compile(data model.QuizData, opts Options) (*Document, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	quiz := cloneQuiz(data)
	settings, err := withDefaults(quiz.Settings)
	if err != nil {
		return nil, err
	}
	quiz.Settings = settings

	found := &issues{}
	validate(quiz, opts.Location, found)
	inlineAssets(quiz, newInliner(opts.Assets), found)
	if err := found.err(); err != nil {
		return nil, err
	}
	normalizeSchedule(&quiz.Settings, opts.Location)

	payload, err := json.Marshal(quiz)
	if err != nil {
		return nil, errors.Wrap(err, "encode quiz payload")
	}
	id := ArtifactID(payload)

	var buf bytes.Buffer
	if err := page(quiz, id, payload).Render(context.Background(), &buf); err != nil {
		return nil, errors.Wrap(err, "render document")
	}

	return &Document{
		ArtifactID: id,
		FileName:   FileName(quiz.Settings.Title),
		HTML:       buf.Bytes(),
		Payload:    payload,
		Quiz:       quiz,
	}, nil
}

// ArtifactID is the stable identity of a payload: hex xxh3-128.
func ArtifactID(payload []byte) string {
	sum := xxh3.Hash128(payload).Bytes()
	return hex.EncodeToString(sum[:])
}

var (
	whitespace      = regexp.MustCompile(`\s+`)
	artifactIDShape = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// IsArtifactID reports whether s has the shape of an ArtifactID.
func IsArtifactID(s string) bool {
	return artifactIDShape.MatchString(s)
}

// FileName derives the download name from a quiz title.
func FileName(title string) string {
	name := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "_")
	if name == "" {
		name = "quiz"
	}
	return name + ".html"
}

func inlineAssets(quiz *model.QuizData, in *inliner, found *issues) {
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		ref := questionRef(q, i)
		if out, err := in.inline(q.Image); err != nil {
			found.add(ref, "image", "%v", err)
		} else {
			q.Image = out
		}
		for j := range q.Choices {
			c := &q.Choices[j]
			if out, err := in.inline(c.Image); err != nil {
				found.add(ref, "choices.image", "choice %q: %v", c.ID, err)
			} else {
				c.Image = out
			}
		}
	}

	s := &quiz.Settings
	for _, a := range []struct {
		field  string
		target *string
	}{
		{"settings.appearance.backgroundImage", &s.Appearance.BackgroundImage},
		{"settings.branding.designerLogo", &s.Branding.DesignerLogo},
		{"settings.designerLogo", &s.DesignerLogo},
	} {
		if out, err := in.inline(*a.target); err != nil {
			found.add("", a.field, "%v", err)
		} else {
			*a.target = out
		}
	}
}

// normalizeSchedule rewrites the window as RFC 3339 UTC so the runtime
// never has to guess a zone.
func normalizeSchedule(s *model.QuizSettings, loc *time.Location) {
	if t, err := model.ParseScheduleTime(s.StartTime, loc); s.StartTime != "" && err == nil {
		s.StartTime = t.UTC().Format(time.RFC3339)
	}
	if t, err := model.ParseScheduleTime(s.EndTime, loc); s.EndTime != "" && err == nil {
		s.EndTime = t.UTC().Format(time.RFC3339)
	}
}

// cloneQuiz copies everything Compile mutates so the caller's value is
// left untouched.
func cloneQuiz(data model.QuizData) *model.QuizData {
	out := data
	out.Questions = make([]model.Question, len(data.Questions))
	for i, q := range data.Questions {
		q.Choices = append([]model.Choice(nil), q.Choices...)
		out.Questions[i] = q
	}
	if data.Settings.AllowRevisit != nil {
		out.Settings.AllowRevisit = model.BoolPtr(*data.Settings.AllowRevisit)
	}
	return &out
}
