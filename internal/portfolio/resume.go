package portfolio

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Resume is the downloadable form of the portfolio.
type Resume struct {
	Name        string       `json:"name"`
	Title       string       `json:"title"`
	Location    string       `json:"location"`
	Email       string       `json:"email"`
	GitHub      string       `json:"github"`
	Summary     string       `json:"summary"`
	Skills      []SkillGroup `json:"skills"`
	Experience  []Entry      `json:"experience"`
	Education   []Entry      `json:"education"`
	Projects    []Project    `json:"projects"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Resume builds the resume view of c.
func (c *Content) Resume(now time.Time) Resume {
	return Resume{
		Name:        c.Profile.Name,
		Title:       c.Profile.Title,
		Location:    c.Profile.Location,
		Email:       c.Profile.Email,
		GitHub:      c.Profile.GitHubURL(),
		Summary:     c.Profile.Tagline,
		Skills:      c.Skills,
		Experience:  c.Experience,
		Education:   c.Education,
		Projects:    c.Projects,
		GeneratedAt: now.UTC(),
	}
}

// JSON encodes the resume with indentation.
func (r Resume) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Text renders the resume as plain text.
func (r Resume) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n%s\n", r.Name, r.Title)
	fmt.Fprintf(&b, "%s | %s | %s\n", r.Location, r.Email, r.GitHub)
	if r.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Summary)
	}

	section(&b, "SKILLS")
	for _, g := range r.Skills {
		fmt.Fprintf(&b, "%s: %s\n", g.Group, strings.Join(g.Items, ", "))
	}

	section(&b, "EXPERIENCE")
	writeEntries(&b, r.Experience)

	section(&b, "EDUCATION")
	writeEntries(&b, r.Education)

	section(&b, "PROJECTS")
	for _, p := range r.Projects {
		fmt.Fprintf(&b, "%s - %s", p.Name, p.Summary)
		if p.URL != "" {
			fmt.Fprintf(&b, " (%s)", p.URL)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func section(b *strings.Builder, name string) {
	fmt.Fprintf(b, "\n%s\n%s\n", name, strings.Repeat("-", len(name)))
}

func writeEntries(b *strings.Builder, entries []Entry) {
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "%s, %s (%s - %s)\n", e.Heading(), e.Organization(), e.Start, e.End)
		for _, bullet := range e.Bullets {
			fmt.Fprintf(b, "  * %s\n", bullet)
		}
	}
}
