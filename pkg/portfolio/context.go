// Package portfolio loads the optional documents that ground the agent's
// answers.
package portfolio

// Document file names, in load order.
const (
	ProfileFile    = "profile.json"
	ProjectsFile   = "projects.json"
	StoriesFile    = "stories.json"
	ResumeFile     = "resume.json"
	StyleRulesFile = "styleRules.md"
)

// Documents lists every file the loader looks for.
var Documents = []string{ProfileFile, ProjectsFile, StoriesFile, ResumeFile, StyleRulesFile}

// Context holds the raw text of each document. An empty field means the
// document was not found.
type Context struct {
	Profile    string
	Projects   string
	Stories    string
	Resume     string
	StyleRules string
}

// Empty reports whether no document was found.
func (c Context) Empty() bool {
	return c.Profile == "" && c.Projects == "" && c.Stories == "" && c.Resume == "" && c.StyleRules == ""
}

// Present maps each document file name to whether it was found.
func (c Context) Present() map[string]bool {
	return map[string]bool{
		ProfileFile:    c.Profile != "",
		ProjectsFile:   c.Projects != "",
		StoriesFile:    c.Stories != "",
		ResumeFile:     c.Resume != "",
		StyleRulesFile: c.StyleRules != "",
	}
}

// Get returns the content of the named document.
func (c Context) Get(file string) string {
	switch file {
	case ProfileFile:
		return c.Profile
	case ProjectsFile:
		return c.Projects
	case StoriesFile:
		return c.Stories
	case ResumeFile:
		return c.Resume
	case StyleRulesFile:
		return c.StyleRules
	}
	return ""
}

func (c *Context) set(file, content string) {
	switch file {
	case ProfileFile:
		c.Profile = content
	case ProjectsFile:
		c.Projects = content
	case StoriesFile:
		c.Stories = content
	case ResumeFile:
		c.Resume = content
	case StyleRulesFile:
		c.StyleRules = content
	}
}
