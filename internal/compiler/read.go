package compiler

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/stemsi/exstem-quiz/internal/model"
)

var (
	ErrNotAnArtifact    = errors.New("document is not a compiled quiz")
	ErrArtifactModified = errors.New("artifact payload does not match its id")
)

// ReadDocument recovers the quiz embedded in a compiled artifact. The
// payload is checked against the artifact id so a hand-edited document is
// refused.
func ReadDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	id, ok := doc.Find(`meta[name="quiz-artifact"]`).Attr("content")
	if !ok || id == "" {
		return nil, errors.Wrap(ErrNotAnArtifact, "missing artifact id")
	}
	script := doc.Find(`script#quiz-data`)
	if script.Length() == 0 {
		return nil, errors.Wrap(ErrNotAnArtifact, "missing quiz payload")
	}

	payload := []byte(strings.TrimSpace(script.Text()))
	if ArtifactID(payload) != id {
		return nil, errors.Wrapf(ErrArtifactModified, "artifact %s", id)
	}

	var quiz model.QuizData
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return nil, errors.Wrap(err, "decode quiz payload")
	}
	return &Document{
		ArtifactID: id,
		FileName:   FileName(quiz.Settings.Title),
		Payload:    payload,
		Quiz:       &quiz,
	}, nil
}
