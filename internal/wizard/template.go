package wizard

import (
	"strings"
)

// BuildPrompt assembles the final prompt from the form without any provider.
// The builder is picked by category.
func BuildPrompt(f Form) string {
	var b promptBuilder
	switch f.Category {
	case "creative_writing":
		buildCreative(&b, f)
	case "business":
		buildBusiness(&b, f)
	case "coding":
		buildCoding(&b, f)
	default:
		buildGeneric(&b, f)
	}
	if goal := strings.TrimSpace(f.Goal); goal != "" {
		b.sentence(goal)
	}
	return b.String()
}

func buildCreative(b *promptBuilder, f Form) {
	var s strings.Builder
	s.WriteString("Write a ")
	if tone := strings.TrimSpace(f.Tone); tone != "" {
		s.WriteString(strings.ToLower(tone) + " ")
	}
	s.WriteString("creative story")
	if v := f.Component("theme"); v != "" {
		s.WriteString(" about " + v)
	}
	if v := f.Component("character"); v != "" {
		s.WriteString(" featuring " + v)
	}
	if v := f.Component("setting"); v != "" {
		s.WriteString(" set in " + v)
	}
	b.sentence(s.String())
	if a := strings.TrimSpace(f.Audience); a != "" {
		b.sentence("The story is intended for " + a)
	}
}

func buildBusiness(b *promptBuilder, f Form) {
	var s strings.Builder
	s.WriteString("Write a ")
	if tone := strings.TrimSpace(f.Tone); tone != "" {
		s.WriteString(strings.ToLower(tone) + " ")
	}
	s.WriteString("business document")
	if v := f.Component("purpose"); v != "" {
		s.WriteString(" for " + v)
	}
	b.sentence(s.String())
	if v := f.Component("key_points"); v != "" {
		b.sentence("Cover these key points: " + v)
	}
	if v := f.Component("context"); v != "" {
		b.sentence("Context: " + v)
	}
	if a := strings.TrimSpace(f.Audience); a != "" {
		b.sentence("The audience is " + a)
	}
}

func buildCoding(b *promptBuilder, f Form) {
	var s strings.Builder
	s.WriteString("Write ")
	if v := f.Component("language"); v != "" {
		s.WriteString(v + " ")
	}
	s.WriteString("code")
	if v := f.Component("task"); v != "" {
		s.WriteString(" to " + v)
	}
	b.sentence(s.String())
	if v := f.Component("requirements"); v != "" {
		b.sentence("Requirements: " + v)
	}
	if tone := strings.TrimSpace(f.Tone); tone != "" {
		b.sentence("Keep explanations " + strings.ToLower(tone))
	}
	if a := strings.TrimSpace(f.Audience); a != "" {
		b.sentence("Explain the solution for " + a)
	}
}

func buildGeneric(b *promptBuilder, f Form) {
	var s strings.Builder
	s.WriteString("Create ")
	if f.Category != "" {
		s.WriteString(strings.ToLower(strings.ReplaceAll(f.Category, "_", " ")) + " ")
	}
	s.WriteString("content")
	if v := f.Component("topic"); v != "" {
		s.WriteString(" about " + v)
	}
	b.sentence(s.String())
	if v := f.Component("details"); v != "" {
		b.sentence("Include these details: " + v)
	}
	if v := f.Component("format"); v != "" {
		b.sentence("Format: " + v)
	}
	if tone := strings.TrimSpace(f.Tone); tone != "" {
		b.sentence("Use a " + strings.ToLower(tone) + " tone")
	}
	if a := strings.TrimSpace(f.Audience); a != "" {
		b.sentence("The intended audience is " + a)
	}
}

// promptBuilder joins sentences with single spaces, closing each with a period.
type promptBuilder struct {
	parts []string
}

func (b *promptBuilder) sentence(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	b.parts = append(b.parts, s)
}

func (b *promptBuilder) String() string {
	return strings.Join(b.parts, " ")
}
