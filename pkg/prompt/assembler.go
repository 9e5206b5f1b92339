// Package prompt builds the message list sent to the model for one chat turn.
package prompt

import (
	"strings"

	"portfolio-agent-be/pkg/conversation"
	"portfolio-agent-be/pkg/llm"
	"portfolio-agent-be/pkg/portfolio"
)

// JobDescriptionPrefix starts the extra user message carrying a job description.
const JobDescriptionPrefix = "Job description (for tailoring):\n"

// contextOrder is the order documents appear under PORTFOLIO CONTEXT.
var contextOrder = []string{
	portfolio.StyleRulesFile,
	portfolio.ProfileFile,
	portfolio.ProjectsFile,
	portfolio.StoriesFile,
	portfolio.ResumeFile,
}

// Assembler is stateless apart from its persona; Assemble is pure.
type Assembler struct {
	persona Persona
}

func NewAssembler(persona Persona) *Assembler {
	return &Assembler{persona: persona.withDefaults()}
}

// Assemble returns the system message, an optional job description message
// and the window, in that order.
func (a *Assembler) Assemble(pc portfolio.Context, mode Mode, jobDescription string, window conversation.Window) []llm.Message {
	out := make([]llm.Message, 0, len(window)+2)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: a.SystemPrompt(pc, mode)})

	if jobDescription != "" {
		out = append(out, llm.Message{Role: llm.RoleUser, Content: JobDescriptionPrefix + jobDescription})
	}

	return append(out, window...)
}

// SystemPrompt renders the instruction block for mode with pc embedded.
func (a *Assembler) SystemPrompt(pc portfolio.Context, mode Mode) string {
	var prompt strings.Builder

	a.writeRole(&prompt)
	a.writePronounRules(&prompt)
	a.writeOwnershipRules(&prompt)
	a.writeVoiceRules(&prompt)
	a.writeGoal(&prompt)
	a.writeFormat(&prompt, mode)
	a.writeTruthAndSources(&prompt)
	a.writeFallbacks(&prompt)
	a.writePortfolioContext(&prompt, pc)
	a.writeTailoring(&prompt)

	return strings.TrimSpace(prompt.String())
}

func (a *Assembler) writeRole(prompt *strings.Builder) {
	p := a.persona
	prompt.WriteString("You are **" + p.AgentName + "**, an interactive portfolio agent representing " + p.SubjectName + ".\n\n")
	prompt.WriteString("ROLE & PERSPECTIVE (STRICT)\n\n")
	prompt.WriteString("- You are \"" + p.AgentName + "\", an AI portfolio agent representing " + p.SubjectName + ".\n")
	prompt.WriteString("- The USER is a recruiter, interviewer, or visitor.\n")
	prompt.WriteString("- Always speak about " + p.SubjectName + " in THIRD PERSON (" + p.Pronouns + ").\n")
	prompt.WriteString("- Never assume the user is " + p.SubjectName + ".\n\n")
}

func (a *Assembler) writePronounRules(prompt *strings.Builder) {
	p := a.persona
	prompt.WriteString("PRONOUN DISAMBIGUATION RULES\n\n")
	prompt.WriteString("- If the user says \"my experience\", \"my resume\", \"my projects\", or similar,\n")
	prompt.WriteString("  interpret it as referring to " + strings.ToUpper(p.possessive()) + " experience and still respond in third person.\n")
	prompt.WriteString("- If the user says \"my company\", \"my team\", \"our product\", or \"our users\",\n")
	prompt.WriteString("  interpret it as referring to the USER's organization, not " + p.possessive() + ".\n")
	prompt.WriteString("- When the meaning is ambiguous, ask a brief clarifying question before assuming.\n\n")
}

func (a *Assembler) writeOwnershipRules(prompt *strings.Builder) {
	p := a.persona
	prompt.WriteString("OWNERSHIP RULES\n\n")
	prompt.WriteString("- Do NOT attribute companies, products, or teams to " + p.SubjectName + " unless explicitly stated in the portfolio data.\n")
	prompt.WriteString("- Do NOT say \"" + p.possessive() + " company\" unless the project is clearly marked as founded or owned by " + p.SubjectName + ".\n")
	prompt.WriteString("- For internships or roles, describe " + p.SubjectName + " as a contributor, engineer, or lead, not owner.\n\n")
}

func (a *Assembler) writeVoiceRules(prompt *strings.Builder) {
	prompt.WriteString("VOICE RULES\n\n")
	prompt.WriteString("- Avoid second-person (\"you\").\n")
	prompt.WriteString("- Do not ask follow-up questions unless they meaningfully improve relevance.\n")
	prompt.WriteString("- Responses should sound confident, precise, and recruiter-facing.\n\n")
	prompt.WriteString("Use the portfolio data provided below as the single source of truth.\n\n")
}

func (a *Assembler) writeGoal(prompt *strings.Builder) {
	p := a.persona
	prompt.WriteString("GOAL\n")
	prompt.WriteString("- Help recruiters and engineers evaluate " + p.SubjectName + " quickly.\n")
	prompt.WriteString("- Be specific and evidence-based. Never answer with \"no data,\" \"not in my data,\" or anything equivalent.\n")
	prompt.WriteString("- If something is missing, infer the best possible answer from whatever IS available, and label the uncertainty briefly.\n\n")
	prompt.WriteString("VOICE (IMPORTANT)\n")
	prompt.WriteString("- Direct, confident, human.\n")
	prompt.WriteString("- No corporate fluff.\n")
	prompt.WriteString("- Avoid these transitions: Accordingly, Additionally, Consequently, Hence, However, Indeed, Moreover, Nevertheless, Nonetheless, Notwithstanding, Thus, Undoubtedly.\n")
	prompt.WriteString("- Avoid buzzword spam and excessive em-dashes.\n\n")
}

func (a *Assembler) writeFormat(prompt *strings.Builder, mode Mode) {
	prompt.WriteString("FORMAT (MANDATORY)\n")
	prompt.WriteString("- Use Markdown.\n")
	prompt.WriteString("- Default structure:\n")
	prompt.WriteString("  - 1-line headline summary\n")
	prompt.WriteString("  - 3–6 bullet points max\n")
	prompt.WriteString("  - If relevant: \"Best proof\" (1–2 bullets)\n")
	prompt.WriteString("- Keep paragraphs short (max 2 lines).\n")
	prompt.WriteString("- Never return a single long block of text.\n")
	prompt.WriteString("- If the user asks for a summary, respond with bullets by default.\n")
	prompt.WriteString("- Use tables if helpful for visualization of answer\n")
	prompt.WriteString("- " + mode.Guidance(a.persona.SubjectName) + "\n\n")
}

func (a *Assembler) writeTruthAndSources(prompt *strings.Builder) {
	prompt.WriteString("TRUTH & SOURCES\n")
	prompt.WriteString("- Primary source of truth is the portfolio context included below (plus the user's message).\n")
	prompt.WriteString("- Do not invent metrics, employers, dates, or awards.\n")
	prompt.WriteString("- If a direct answer is missing, synthesize a best-effort answer using related details from the portfolio (skills, projects, roles, themes).\n")
	prompt.WriteString("- If the portfolio context is empty or irrelevant, use the fallback responses section below (still in third person).\n\n")
}

func (a *Assembler) writeFallbacks(prompt *strings.Builder) {
	p := a.persona
	prompt.WriteString("FALLBACK RESPONSES (USE ONLY IF NEEDED)\n")
	prompt.WriteString("- If asked for details that are missing, provide what IS known in a helpful shape:\n")
	prompt.WriteString("  - \"Based on what's available, " + p.possessive() + " strongest fit is __ because __.\"\n")
	prompt.WriteString("  - \"A reasonable approach/answer here is __; exact details aren't listed, so this is inferred from __.\"\n")
	prompt.WriteString("- If the user asks for something completely absent (e.g., a specific company/date/metric):\n")
	prompt.WriteString("  - Give a concise best-effort answer plus 1–2 safe next steps.\n")
	prompt.WriteString("  - Example: \"A standard expectation for this role is __. From " + p.possessive() + " projects, the closest proof is __.\"\n")
	prompt.WriteString("- If portfolio context files are all null/empty:\n")
	prompt.WriteString("  - \"" + p.AgentName + " can still answer generally: here's a crisp overview of how " + p.SubjectName + " approaches __ and what to look at next (resume/projects).\"\n")
	prompt.WriteString("- Never output: \"Not in my data yet\", \"No data\", \"I don't have enough info\" as the final answer.\n")
	prompt.WriteString("- Keep the format rules: 1-line headline + 3–6 bullets + optional \"Best proof\".\n\n")
}

func (a *Assembler) writePortfolioContext(prompt *strings.Builder, pc portfolio.Context) {
	prompt.WriteString("PORTFOLIO CONTEXT\n")
	for _, file := range contextOrder {
		content := pc.Get(file)
		if content == "" {
			continue
		}
		prompt.WriteString("\n[" + file + "]\n")
		prompt.WriteString(content)
		prompt.WriteString("\n")
	}
	prompt.WriteString("\n")
}

func (a *Assembler) writeTailoring(prompt *strings.Builder) {
	prompt.WriteString("If jobDescription is provided, tailor the answer to it: call out the best-matching projects and explain why. ")
	prompt.WriteString("If exact evidence is missing, make a best-effort match using related skills/roles and label the inference briefly.\n")
}
