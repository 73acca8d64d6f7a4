package manifest

import (
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

func parseGoMod(path string, data []byte) (*Manifest, error) {
	file, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid go.mod: %w", err)
	}
	m := &Manifest{}
	if file.Module != nil {
		m.Name = file.Module.Mod.Path
	}
	if file.Go != nil {
		m.Version = "go " + file.Go.Version
	}
	for _, req := range file.Require {
		if req.Indirect {
			continue
		}
		m.Dependencies = append(m.Dependencies, Dependency{
			Name:       req.Mod.Path,
			Constraint: req.Mod.Version,
		})
	}
	return m, nil
}

func parsePackageJSON(_ string, data []byte) (*Manifest, error) {
	var pkg struct {
		Name         string            `json:"name"`
		Version      string            `json:"version"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("invalid package.json: %w", err)
	}
	m := &Manifest{Name: pkg.Name, Version: pkg.Version}
	for name, constraint := range pkg.Dependencies {
		m.Dependencies = append(m.Dependencies, Dependency{Name: name, Constraint: constraint})
	}
	return m, nil
}

// parsePyProject reads PEP 621 metadata, falling back to the poetry layout
// older projects still use.
func parsePyProject(_ string, data []byte) (*Manifest, error) {
	var doc struct {
		Project struct {
			Name         string   `toml:"name"`
			Version      string   `toml:"version"`
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name         string                 `toml:"name"`
				Version      string                 `toml:"version"`
				Dependencies map[string]interface{} `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid pyproject.toml: %w", err)
	}

	m := &Manifest{Name: doc.Project.Name, Version: doc.Project.Version}
	for _, req := range doc.Project.Dependencies {
		m.Dependencies = append(m.Dependencies, splitRequirement(req))
	}
	if m.Name == "" && doc.Tool.Poetry.Name != "" {
		m.Name = doc.Tool.Poetry.Name
		m.Version = doc.Tool.Poetry.Version
		for name, spec := range doc.Tool.Poetry.Dependencies {
			if name == "python" {
				continue
			}
			dep := Dependency{Name: name}
			if constraint, ok := spec.(string); ok {
				dep.Constraint = constraint
			}
			m.Dependencies = append(m.Dependencies, dep)
		}
	}
	return m, nil
}

func parseCargo(_ string, data []byte) (*Manifest, error) {
	var doc struct {
		Package struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
		Dependencies map[string]interface{} `toml:"dependencies"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid Cargo.toml: %w", err)
	}

	m := &Manifest{Name: doc.Package.Name, Version: doc.Package.Version}
	for name, spec := range doc.Dependencies {
		dep := Dependency{Name: name}
		switch v := spec.(type) {
		case string:
			dep.Constraint = v
		case map[string]interface{}:
			if version, ok := v["version"].(string); ok {
				dep.Constraint = version
			}
		}
		m.Dependencies = append(m.Dependencies, dep)
	}
	return m, nil
}

func parsePom(_ string, data []byte) (*Manifest, error) {
	var doc struct {
		GroupID      string `xml:"groupId"`
		ArtifactID   string `xml:"artifactId"`
		Version      string `xml:"version"`
		Dependencies struct {
			Dependency []struct {
				GroupID    string `xml:"groupId"`
				ArtifactID string `xml:"artifactId"`
				Version    string `xml:"version"`
				Scope      string `xml:"scope"`
			} `xml:"dependency"`
		} `xml:"dependencies"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid pom.xml: %w", err)
	}

	m := &Manifest{Version: doc.Version}
	if doc.GroupID != "" || doc.ArtifactID != "" {
		m.Name = doc.GroupID + ":" + doc.ArtifactID
	}
	for _, dep := range doc.Dependencies.Dependency {
		if dep.Scope == "test" {
			continue
		}
		m.Dependencies = append(m.Dependencies, Dependency{
			Name:       dep.GroupID + ":" + dep.ArtifactID,
			Constraint: dep.Version,
		})
	}
	return m, nil
}

func parsePubspec(_ string, data []byte) (*Manifest, error) {
	var doc struct {
		Name         string                 `yaml:"name"`
		Version      string                 `yaml:"version"`
		Dependencies map[string]interface{} `yaml:"dependencies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid pubspec.yaml: %w", err)
	}

	m := &Manifest{Name: doc.Name, Version: doc.Version}
	for name, spec := range doc.Dependencies {
		dep := Dependency{Name: name}
		if constraint, ok := spec.(string); ok {
			dep.Constraint = constraint
		}
		m.Dependencies = append(m.Dependencies, dep)
	}
	return m, nil
}
