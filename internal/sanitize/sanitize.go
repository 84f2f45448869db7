// Package sanitize normalizes and validates raw snippet input before it is
// persisted. User-submitted source code is adversarial input to the storage
// layer: byte-order marks, NUL bytes, and stray control characters corrupt
// JSON serialization and downstream display, so every create request passes
// through Sanitize exactly once.
//
// Sanitize is a fixed point: Sanitize(Sanitize(x)) == Sanitize(x).
package sanitize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
)

// Length ceilings, counted in code points after trimming.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
	MaxFilenameLen    = 100
	MaxTags           = 10
	MaxFileContentLen = 500_000
)

// Input is the raw, untrusted create-request payload.
type Input struct {
	Title       string
	Files       []model.CodeFile
	Description string
	Tags        []string
}

// Sanitize returns a cleaned copy of in or an error describing the first
// offending field. It never mutates its argument and never truncates file
// content: oversized files are rejected so user intent is preserved.
func Sanitize(in Input) (Input, error) {
	out := Input{}

	title, err := cleanField("title", in.Title, MaxTitleLen)
	if err != nil {
		return Input{}, err
	}
	if title == "" {
		return Input{}, apperror.ValidationFailed("title", "title is required")
	}
	out.Title = title

	desc, err := cleanField("description", in.Description, MaxDescriptionLen)
	if err != nil {
		return Input{}, err
	}
	out.Description = desc

	if len(in.Files) == 0 {
		return Input{}, apperror.ValidationFailed("files", "at least one file is required")
	}
	out.Files = make([]model.CodeFile, 0, len(in.Files))
	allEmpty := true
	for i, f := range in.Files {
		clean, err := cleanFile(i, f)
		if err != nil {
			return Input{}, err
		}
		if clean.Content != "" {
			allEmpty = false
		}
		out.Files = append(out.Files, clean)
	}
	if allEmpty {
		return Input{}, apperror.EmptyContent()
	}

	out.Tags = cleanTags(in.Tags)
	return out, nil
}

// cleanFile sanitizes one file entry. The field name in errors is the
// positional files[i] reference so callers can point the user at it.
func cleanFile(i int, f model.CodeFile) (model.CodeFile, error) {
	field := fmt.Sprintf("files[%d]", i)

	if !utf8.ValidString(f.Content) {
		return model.CodeFile{}, apperror.EncodingFailed(field,
			fmt.Sprintf("file %d content is not valid UTF-8", i+1))
	}

	name := strings.TrimSpace(stripControl(f.Filename))
	if name == "" {
		name = fmt.Sprintf("untitled-%d", i+1)
	}
	if runeLen(name) > MaxFilenameLen {
		return model.CodeFile{}, apperror.ValidationFailed(field,
			fmt.Sprintf("filename must be %d characters or less", MaxFilenameLen))
	}

	lang := strings.TrimSpace(f.Language)
	if lang == "" {
		lang = "plaintext"
	}

	content := strings.TrimSpace(stripControl(f.Content))
	if runeLen(content) > MaxFileContentLen {
		return model.CodeFile{}, apperror.ValidationFailed(field,
			fmt.Sprintf("file %d exceeds the %d character limit", i+1, MaxFileContentLen))
	}

	return model.CodeFile{Filename: name, Language: lang, Content: content}, nil
}

// cleanField trims and strips a single-line text field, enforcing its ceiling.
func cleanField(field, s string, max int) (string, error) {
	if !utf8.ValidString(s) {
		return "", apperror.EncodingFailed(field, field+" is not valid UTF-8")
	}
	s = strings.TrimSpace(stripControl(s))
	if runeLen(s) > max {
		return "", apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return s, nil
}

// cleanTags trims, deduplicates (first occurrence wins), drops empties, and
// caps the set at MaxTags. Extra entries are dropped, not an error.
func cleanTags(tags []string) []string {
	out := make([]string, 0, min(len(tags), MaxTags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(stripControl(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// stripControl removes U+FEFF, U+0000–U+001F except tab and line feed, and
// U+007F. Applying it twice yields the same result as applying it once.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n':
			return r
		case r < 0x20 || r == 0x7F || r == '\uFEFF':
			return -1
		default:
			return r
		}
	}, s)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
