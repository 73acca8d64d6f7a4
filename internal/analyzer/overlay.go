package analyzer

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	apperrors "panopticon/internal/errors"
	"panopticon/internal/language"
	"panopticon/internal/report"
)

// overlayFile is the on-disk tool overlay. Known tool names override fields
// of the built-in table; unknown names register new tools.
type overlayFile struct {
	Tools map[string]overlayTool `toml:"tools"`
}

type overlayTool struct {
	Binary     string   `toml:"binary"`
	Args       []string `toml:"args"`
	Format     string   `toml:"format"`
	Languages  []string `toml:"languages"`
	Disabled   *bool    `toml:"disabled"`
	MinVersion string   `toml:"minVersion"`
}

// ApplyOverlay merges a TOML overlay file into the registry. Overlays let an
// operator tune arguments, disable tools, or register site-local ones without
// rebuilding.
func (r *Registry) ApplyOverlay(path string) error {
	var file overlayFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return apperrors.NewInvalidParameter("overlayPath", fmt.Sprintf("cannot read %s: %v", path, err))
	}

	names := make([]string, 0, len(file.Tools))
	for name := range file.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ov := file.Tools[name]
		if idx := r.indexOf(name); idx >= 0 {
			if err := applyOverride(&r.tools[idx], ov); err != nil {
				return apperrors.NewInvalidParameter("overlayPath", fmt.Sprintf("tool %q: %v", name, err))
			}
			continue
		}
		spec, err := specFromOverlay(name, ov)
		if err != nil {
			return apperrors.NewInvalidParameter("overlayPath", fmt.Sprintf("tool %q: %v", name, err))
		}
		r.tools = append(r.tools, spec)
	}
	return nil
}

func (r *Registry) indexOf(name string) int {
	for i, spec := range r.tools {
		if spec.Name == name {
			return i
		}
	}
	return -1
}

func applyOverride(spec *ToolSpec, ov overlayTool) error {
	if ov.Binary != "" {
		spec.Binary = ov.Binary
	}
	if ov.Args != nil {
		spec.Args = ov.Args
	}
	if ov.Format != "" {
		format, err := parseFormat(ov.Format)
		if err != nil {
			return err
		}
		spec.Format = format
	}
	if ov.Languages != nil {
		langs, err := parseLanguages(ov.Languages)
		if err != nil {
			return err
		}
		spec.Languages = langs
	}
	if ov.Disabled != nil {
		spec.Disabled = *ov.Disabled
	}
	if ov.MinVersion != "" {
		spec.MinVersion = ov.MinVersion
	}
	return nil
}

func specFromOverlay(name string, ov overlayTool) (ToolSpec, error) {
	if ov.Binary == "" {
		return ToolSpec{}, fmt.Errorf("new tool needs a binary")
	}
	format, err := parseFormat(ov.Format)
	if err != nil {
		return ToolSpec{}, err
	}
	langs, err := parseLanguages(ov.Languages)
	if err != nil {
		return ToolSpec{}, err
	}
	spec := ToolSpec{
		Name:       name,
		Binary:     ov.Binary,
		Args:       ov.Args,
		Format:     format,
		Languages:  langs,
		MinVersion: ov.MinVersion,
	}
	if ov.Disabled != nil {
		spec.Disabled = *ov.Disabled
	}
	return spec, nil
}

func parseFormat(s string) (report.Format, error) {
	switch report.Format(s) {
	case report.FormatJSON, report.FormatXML, report.FormatLines:
		return report.Format(s), nil
	case "":
		return "", fmt.Errorf("new tool needs a format (json, xml, or lines)")
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

func parseLanguages(names []string) ([]language.Language, error) {
	var out []language.Language
	for _, name := range names {
		lang, ok := language.Parse(name)
		if !ok {
			return nil, fmt.Errorf("unknown language %q", name)
		}
		out = append(out, lang)
	}
	return out, nil
}
