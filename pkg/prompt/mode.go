package prompt

import "strings"

// Mode selects the answer style.
type Mode string

const (
	ModeDefault   Mode = ""
	ModeRecruiter Mode = "Recruiter"
	ModeTechnical Mode = "Technical"
	ModeCasual    Mode = "Casual"
	ModeOneLiner  Mode = "One-liner"
)

// ParseMode accepts the raw decoded "mode" field. Anything that is not one
// of the known names, including non-strings, is ModeDefault.
func ParseMode(raw any) Mode {
	s, ok := raw.(string)
	if !ok {
		return ModeDefault
	}
	switch m := Mode(s); m {
	case ModeRecruiter, ModeTechnical, ModeCasual, ModeOneLiner:
		return m
	}
	return ModeDefault
}

func (m Mode) String() string {
	if m == ModeDefault {
		return "default"
	}
	return string(m)
}

// Guidance returns the style instruction for m. subject names the person the
// agent speaks about.
func (m Mode) Guidance(subject string) string {
	switch m {
	case ModeRecruiter:
		return strings.Join([]string{
			"Keep it skimmable: 4–8 bullets max.",
			"Lead with role-fit + impact + proof.",
			"Avoid deep implementation unless asked.",
		}, "\n")
	case ModeTechnical:
		return strings.Join([]string{
			"Be technical and specific (architecture, tradeoffs, edge cases).",
			"Use short sections: Approach / Tradeoffs / Results.",
			"If you mention a project, tie it to concrete implementation details.",
		}, "\n")
	case ModeCasual:
		return strings.Join([]string{
			"Sound like " + subject + ": confident, direct, human.",
			"No corporate fluff. Still keep it professional.",
		}, "\n")
	case ModeOneLiner:
		return "Answer in 1–2 sentences max. If needed, add ONE bullet with proof."
	default:
		return "Be concise, specific, and helpful."
	}
}
