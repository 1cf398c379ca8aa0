package compiler

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate -f shell.templ

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/a-h/templ"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// runtimeJS is the delivery runtime shipped in every artifact. Behaviour is
// driven only by the embedded settings.
//
//go:embed assets/runtime.js
var runtimeJS string

//go:embed assets/shell.css
var baseCSS string

func styleSheet(s *model.QuizSettings) templ.Component {
	return templ.Raw("<style>\n" + baseCSS + appearanceCSS(s) + "</style>")
}

// payloadScript embeds the quiz. json.Marshal escapes <, > and &, so the
// payload cannot close the script element early.
func payloadScript(payload []byte) templ.Component {
	return templ.Raw(`<script type="application/json" id="quiz-data">` + string(payload) + "</script>")
}

func runtimeScript() templ.Component {
	return templ.Raw("<script>\n" + runtimeJS + "</script>")
}

func bodyClasses(s *model.QuizSettings) []string {
	classes := []string{
		"shape-" + cssToken(s.Appearance.AnswerBoxShape),
		"effect-" + cssToken(s.Appearance.BoxEffect),
		"transition-" + cssToken(s.Appearance.TransitionEffect),
		"anim-" + cssToken(s.Appearance.AnswerAnimation),
		"img-" + cssToken(s.Appearance.QuestionImageStyle),
		"size-" + cssToken(s.Appearance.FontSizeChoices),
		"spacing-" + cssToken(s.Appearance.SpacingChoices),
	}
	if s.Appearance.ShowSideColumn {
		classes = append(classes, "side-column")
	}
	if s.PreventScreenshot {
		classes = append(classes, "no-select")
	}
	return classes
}

func headerMeta(s *model.QuizSettings) string {
	var meta []string
	for _, v := range []string{s.ClassName, s.Subject, s.Branch, s.Unit, s.Lesson} {
		if v = strings.TrimSpace(v); v != "" {
			meta = append(meta, v)
		}
	}
	return strings.Join(meta, " · ")
}

// mark is the designer credit shown in the footer.
type mark struct {
	name    string
	logo    string
	width   int
	height  int
	classes []string
}

// branding renders nothing when the quiz carries no designer name or logo.
// The top-level designer fields win over the nested branding block.
func branding(s *model.QuizSettings) templ.Component {
	b := s.Branding
	m := mark{
		name:   b.DesignerName,
		logo:   b.DesignerLogo,
		width:  b.LogoWidth,
		height: b.LogoHeight,
	}
	if m.name == "" {
		m.name = s.DesignerName
	}
	if m.logo == "" {
		m.logo = s.DesignerLogo
	}
	if m.name == "" && m.logo == "" {
		return templ.NopComponent
	}

	position := b.Position
	if s.CopyrightPosition != "" {
		position = s.CopyrightPosition
	}
	m.classes = []string{"branding", "branding-" + cssToken(position), "layout-" + cssToken(b.TextLayout)}
	return footer(m)
}

func appearanceCSS(s *model.QuizSettings) string {
	a := s.Appearance
	var b strings.Builder
	b.WriteString(":root{")
	fmt.Fprintf(&b, "--bg:%s;", cssValue(a.BackgroundColor))
	fmt.Fprintf(&b, "--box-bg:%s;", cssValue(a.AnswerBoxBg))
	fmt.Fprintf(&b, "--box-fg:%s;", cssValue(a.AnswerTextColor))
	fmt.Fprintf(&b, "--sel-bg:%s;", cssValue(a.SelectedColor))
	fmt.Fprintf(&b, "--sel-fg:%s;", cssValue(a.SelectedTextColor))
	fmt.Fprintf(&b, "--border-style:%s;", cssValue(a.BorderStyle))
	b.WriteString("}\n")
	br := s.Branding
	fmt.Fprintf(&b, ".branding{color:%s;font-size:%dpx;font-family:%s}\n",
		cssValue(br.TextColor), br.FontSize, cssValue(br.FontFamily))
	if a.BackgroundImage != "" {
		fmt.Fprintf(&b, "body{background-image:url(\"%s\");background-size:cover;}\n", cssURL(a.BackgroundImage))
	}
	return b.String()
}

// cssValue keeps only characters that can appear in colors, lengths and
// font stacks.
func cssValue(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("#%(),.- ", r):
			return r
		}
		return -1
	}, v)
}

// cssToken reduces a setting to a class-name fragment.
func cssToken(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	t := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ', r == '_':
			return '-'
		}
		return -1
	}, v)
	if t == "" {
		return "default"
	}
	return t
}

// cssURL only ever receives inlined data URIs; quotes and backslashes are
// dropped so the value cannot escape the url() string.
func cssURL(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r == '\n' || r == '<' {
			return -1
		}
		return r
	}, v)
}
