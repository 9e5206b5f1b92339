package prompt

import "strings"

const (
	DefaultAgentName   = "PortfolioGPT"
	DefaultSubjectName = "the candidate"
	DefaultPronouns    = "they/them"
)

// Persona names the agent and the person it represents.
type Persona struct {
	AgentName   string
	SubjectName string
	Pronouns    string
}

func DefaultPersona() Persona {
	return Persona{
		AgentName:   DefaultAgentName,
		SubjectName: DefaultSubjectName,
		Pronouns:    DefaultPronouns,
	}
}

// withDefaults fills blank fields.
func (p Persona) withDefaults() Persona {
	if strings.TrimSpace(p.AgentName) == "" {
		p.AgentName = DefaultAgentName
	}
	if strings.TrimSpace(p.SubjectName) == "" {
		p.SubjectName = DefaultSubjectName
	}
	if strings.TrimSpace(p.Pronouns) == "" {
		p.Pronouns = DefaultPronouns
	}
	return p
}

// possessive renders "Ada's" or "the candidate's".
func (p Persona) possessive() string {
	if strings.HasSuffix(p.SubjectName, "s") {
		return p.SubjectName + "'"
	}
	return p.SubjectName + "'s"
}
