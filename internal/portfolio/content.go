// Package portfolio holds the site's static content: profile, projects,
// skills, experience, education and pinned repositories.
package portfolio

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

type Profile struct {
	Name     string `yaml:"name" json:"name"`
	Title    string `yaml:"title" json:"title"`
	Tagline  string `yaml:"tagline" json:"tagline"`
	Location string `yaml:"location" json:"location"`
	Email    string `yaml:"email" json:"email"`
	GitHub   string `yaml:"github" json:"github"`
	LinkedIn string `yaml:"linkedin" json:"linkedin,omitempty"`
	About    string `yaml:"about" json:"about"`
}

// GitHubURL returns the profile's GitHub page.
func (p Profile) GitHubURL() string {
	return "https://github.com/" + p.GitHub
}

type Project struct {
	Name        string   `yaml:"name" json:"name"`
	Summary     string   `yaml:"summary" json:"summary"`
	Description string   `yaml:"description" json:"description"`
	Tech        []string `yaml:"tech" json:"tech"`
	URL         string   `yaml:"url" json:"url,omitempty"`
}

type SkillGroup struct {
	Group string   `yaml:"group" json:"group"`
	Items []string `yaml:"items" json:"items"`
}

// Entry is one row of the experience or education timeline.
type Entry struct {
	Title       string   `yaml:"title" json:"title,omitempty"`
	Company     string   `yaml:"company" json:"company,omitempty"`
	Degree      string   `yaml:"degree" json:"degree,omitempty"`
	Institution string   `yaml:"institution" json:"institution,omitempty"`
	Start       string   `yaml:"start" json:"start"`
	End         string   `yaml:"end" json:"end"`
	Logo        string   `yaml:"logo" json:"-"`
	Bullets     []string `yaml:"bullets" json:"bullets"`
}

// Heading returns the role or degree.
func (e Entry) Heading() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Degree
}

// Organization returns the company or institution.
func (e Entry) Organization() string {
	if e.Company != "" {
		return e.Company
	}
	return e.Institution
}

type Repository struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Language    string `yaml:"language" json:"language"`
	Stars       int    `yaml:"stars" json:"stars"`
}

// Content is everything the pages render.
type Content struct {
	Profile      Profile      `yaml:"profile" json:"profile"`
	Projects     []Project    `yaml:"projects" json:"projects"`
	Skills       []SkillGroup `yaml:"skills" json:"skills"`
	Experience   []Entry      `yaml:"experience" json:"experience"`
	Education    []Entry      `yaml:"education" json:"education"`
	Repositories []Repository `yaml:"repositories" json:"repositories"`
}

// Default returns the content shipped with the site.
func Default() *Content {
	c, err := Parse(defaultContent)
	if err != nil {
		panic(fmt.Sprintf("embedded content: %v", err))
	}
	return c
}

// Parse reads a YAML content document.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	if strings.TrimSpace(c.Profile.Name) == "" {
		return nil, errors.New("parsing content: profile name is required")
	}
	return &c, nil
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Markdown renders src to HTML. Raw HTML in src is dropped.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
