// Package analyzer selects and runs external analysis tools against a
// checked-out repository. Tool selection is driven by detected languages;
// vulnerability scanners run regardless of language.
package analyzer

import (
	"sort"

	"panopticon/internal/language"
	"panopticon/internal/report"
)

// ToolSpec describes one external tool: how to invoke it, what it emits, and
// which languages make it eligible. Specs with no languages are
// repository-wide security scanners and are always selected.
type ToolSpec struct {
	Name        string
	Binary      string
	Args        []string
	Format      report.Format
	Languages   []language.Language
	VersionArgs []string
	MinVersion  string
	Install     map[string]string // per-OS install commands
	Disabled    bool
}

// Security reports whether the tool runs repository-wide rather than per
// language.
func (s ToolSpec) Security() bool {
	return len(s.Languages) == 0
}

func defaultTools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        "gosec",
			Binary:      "gosec",
			Args:        []string{"-fmt=json", "-quiet", "./..."},
			Format:      report.FormatJSON,
			Languages:   []language.Language{language.Go},
			VersionArgs: []string{"--version"},
			Install: map[string]string{
				"default": "go install github.com/securego/gosec/v2/cmd/gosec@latest",
			},
		},
		{
			Name:        "gocyclo",
			Binary:      "gocyclo",
			Args:        []string{"-over", "10", "."},
			Format:      report.FormatLines,
			Languages:   []language.Language{language.Go},
			Install: map[string]string{
				"default": "go install github.com/fzipp/gocyclo/cmd/gocyclo@latest",
			},
		},
		{
			Name:        "staticcheck",
			Binary:      "staticcheck",
			Args:        []string{"-f", "json", "./..."},
			Format:      report.FormatJSON,
			Languages:   []language.Language{language.Go},
			VersionArgs: []string{"-version"},
			Install: map[string]string{
				"default": "go install honnef.co/go/tools/cmd/staticcheck@latest",
			},
		},
		{
			Name:        "bandit",
			Binary:      "bandit",
			Args:        []string{"-r", "-f", "json", "-q", "."},
			Format:      report.FormatJSON,
			Languages:   []language.Language{language.Python},
			VersionArgs: []string{"--version"},
			Install: map[string]string{
				"default": "pip install bandit",
			},
		},
		{
			Name:        "pylint",
			Binary:      "pylint",
			Args:        []string{"--output-format=json", "--recursive=y", "--exit-zero", "."},
			Format:      report.FormatJSON,
			Languages:   []language.Language{language.Python},
			VersionArgs: []string{"--version"},
			Install: map[string]string{
				"default": "pip install pylint",
			},
		},
		{
			Name:        "eslint",
			Binary:      "eslint",
			Args:        []string{"--format", "json", "."},
			Format:      report.FormatJSON,
			Languages:   []language.Language{language.JavaScript, language.TypeScript},
			VersionArgs: []string{"--version"},
			Install: map[string]string{
				"default": "npm install -g eslint",
			},
		},
		{
			Name:        "pmd",
			Binary:      "pmd",
			Args:        []string{"check", "--dir", ".", "--rulesets", "rulesets/java/quickstart.xml", "--format", "xml", "--no-progress"},
			Format:      report.FormatXML,
			Languages:   []language.Language{language.Java},
			VersionArgs: []string{"--version"},
			Install: map[string]string{
				"darwin":  "brew install pmd",
				"default": "see https://pmd.github.io/pmd/pmd_userdocs_installation.html",
			},
		},
		{
			Name:        "semgrep",
			Binary:      "semgrep",
			Args:        []string{"scan", "--json", "--quiet", "--config", "auto", "."},
			Format:      report.FormatJSON,
			Languages:   []language.Language{language.Ruby, language.Rust},
			VersionArgs: []string{"--version"},
			MinVersion:  "1.0.0",
			Install: map[string]string{
				"darwin":  "brew install semgrep",
				"default": "pip install semgrep",
			},
		},
		{
			Name:        "trivy",
			Binary:      "trivy",
			Args:        []string{"fs", "--format", "json", "--quiet", "--scanners", "vuln,secret,misconfig", "."},
			Format:      report.FormatJSON,
			VersionArgs: []string{"--version"},
			MinVersion:  "0.40.0",
			Install: map[string]string{
				"darwin":  "brew install trivy",
				"linux":   "apt install trivy",
				"default": "see https://trivy.dev/latest/getting-started/installation/",
			},
		},
	}
}

// Registry holds the tool table in a fixed order so selection and reporting
// stay deterministic.
type Registry struct {
	tools []ToolSpec
}

// DefaultRegistry returns the built-in tool table.
func DefaultRegistry() *Registry {
	return &Registry{tools: defaultTools()}
}

// All returns the specs in registry order.
func (r *Registry) All() []ToolSpec {
	out := make([]ToolSpec, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup finds a spec by tool name.
func (r *Registry) Lookup(name string) (ToolSpec, bool) {
	for _, spec := range r.tools {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// Selection pairs a chosen tool with the detected languages it will report
// under. Security tools carry no languages.
type Selection struct {
	Spec      ToolSpec
	Languages []language.Language
}

// Select computes the union of tools for every language at or above the
// confidence threshold, plus every security scanner. A tool eligible through
// several languages is selected once and reports under each matched language.
func (r *Registry) Select(confidences map[language.Language]float64, minConfidence float64) []Selection {
	var out []Selection
	for _, spec := range r.tools {
		if spec.Disabled {
			continue
		}
		if spec.Security() {
			out = append(out, Selection{Spec: spec})
			continue
		}
		var matched []language.Language
		for _, lang := range spec.Languages {
			if conf, ok := confidences[lang]; ok && conf >= minConfidence {
				matched = append(matched, lang)
			}
		}
		if len(matched) > 0 {
			sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
			out = append(out, Selection{Spec: spec, Languages: matched})
		}
	}
	return out
}

// Placement converts selections into the tool-to-languages map the report
// aggregator groups by.
func Placement(selections []Selection) map[string][]string {
	out := make(map[string][]string, len(selections))
	for _, sel := range selections {
		langs := make([]string, 0, len(sel.Languages))
		for _, lang := range sel.Languages {
			langs = append(langs, string(lang))
		}
		out[sel.Spec.Name] = langs
	}
	return out
}
