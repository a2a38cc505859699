package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	learnerReplyRegex       = regexp.MustCompile(`(?i)</?\s*learner-reply\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxReplyRunes = 2000

// AppContext is the system prompt sent with every request.
const AppContext = "You are a helpful assistant simulating real-life scenarios for people with intellectual disabilities."

// Variant is a difficulty-tailored prompt set.
type Variant string

const (
	// VariantEasy is short, simple and lenient.
	VariantEasy Variant = "easy"
	// VariantMedium is the default.
	VariantMedium Variant = "medium"
	// VariantHard is longer and stricter.
	VariantHard Variant = "hard"
)

var validVariants = map[Variant]bool{
	VariantEasy:   true,
	VariantMedium: true,
	VariantHard:   true,
}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// Kind names one prompt within a variant.
type Kind string

const (
	KindJudge        Kind = "judge"
	KindGuidance     Kind = "guidance"
	KindOpening      Kind = "opening"
	KindContinuation Kind = "continuation"
	KindWrapUp       Kind = "wrapup"
)

// Data holds template data shared by all prompts.
type Data struct {
	ScenarioName string
	Backstory    string
	Objectives   string
	ModelRole    string
	UserRole     string
	Transcript   string
	Reply        string
}

var (
	loadOnce     sync.Once
	loadErr      error
	variantTmpls map[Variant]*template.Template
	evalTmpl     *template.Template
)

// Load parses the embedded templates. It is safe to call more than once.
func Load() error {
	loadOnce.Do(func() {
		variantTmpls = make(map[Variant]*template.Template)
		for v := range validVariants {
			name := "templates/" + string(v) + ".tmpl"
			content, err := templateFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(v)).Option("missingkey=error").Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			for _, k := range []Kind{KindJudge, KindGuidance, KindOpening, KindContinuation, KindWrapUp} {
				if tmpl.Lookup(string(k)) == nil {
					loadErr = fmt.Errorf("prompt template %s is missing %q", name, k)
					return
				}
			}
			variantTmpls[v] = tmpl
		}

		content, err := templateFS.ReadFile("templates/evaluate.tmpl")
		if err != nil {
			loadErr = fmt.Errorf("read evaluation prompt: %w", err)
			return
		}
		evalTmpl, loadErr = template.New("evaluate").Parse(string(content))
	})
	return loadErr
}

// Build renders one prompt of the given variant.
func Build(variant Variant, kind Kind, data Data) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := variantTmpls[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	data.Reply = sanitizeReply(data.Reply)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// BuildEvaluation renders the whole-conversation evaluation prompt.
func BuildEvaluation(data Data) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	var buf bytes.Buffer
	if err := evalTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// sanitizeReply strips markup that could break out of the reply block and
// caps the reply length.
func sanitizeReply(reply string) string {
	reply = learnerReplyRegex.ReplaceAllString(reply, "")
	reply = systemInstructionsRegex.ReplaceAllString(reply, "")
	reply = strings.TrimSpace(reply)

	if reply == "" {
		return "[No reply provided]"
	}
	if utf8.RuneCountInString(reply) > maxReplyRunes {
		runes := []rune(reply)
		reply = string(runes[:maxReplyRunes]) + "\n\n[Reply truncated due to length]"
	}
	return reply
}
