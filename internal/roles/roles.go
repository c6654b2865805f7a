// Package roles loads agent role definitions from YAML files. A role
// describes the skills and capacity of one agent persona; registering a
// role with a project creates an agent built from it.
package roles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"taskmesh/internal/agent"
	"taskmesh/pkg/models"
)

// Role is one agent persona definition.
type Role struct {
	Slug                string   `yaml:"slug"`
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description"`
	Capabilities        []string `yaml:"capabilities"`
	Specializations     []string `yaml:"specializations"`
	PreferredLanguages  []string `yaml:"preferred_languages"`
	PreferredFrameworks []string `yaml:"preferred_frameworks"`
	MaxConcurrentTasks  int      `yaml:"max_concurrent_tasks"`
	PriorityPreference  string   `yaml:"priority_preference"`
}

// Validate checks that the role can produce a usable agent.
func (r *Role) Validate() error {
	if strings.TrimSpace(r.Slug) == "" {
		return fmt.Errorf("role must have a slug")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("role %s must have a name", r.Slug)
	}
	if r.MaxConcurrentTasks < 0 {
		return fmt.Errorf("role %s: max_concurrent_tasks cannot be negative", r.Slug)
	}
	if r.PriorityPreference != "" && !models.Priority(r.PriorityPreference).Valid() {
		return fmt.Errorf("role %s: unknown priority_preference %q", r.Slug, r.PriorityPreference)
	}
	return nil
}

// Agent builds a fresh agent from the role definition.
func (r *Role) Agent() *agent.Agent {
	a := agent.New(r.Slug, r.Name, r.Capabilities)
	a.Description = r.Description
	a.Specializations = append([]string(nil), r.Specializations...)
	a.PreferredLanguages = append([]string(nil), r.PreferredLanguages...)
	a.PreferredFrameworks = append([]string(nil), r.PreferredFrameworks...)
	a.PriorityPreference = models.Priority(r.PriorityPreference)
	if r.MaxConcurrentTasks > 0 {
		a.MaxConcurrentTasks = r.MaxConcurrentTasks
	}
	return a
}

// LoadFile reads one role definition from a YAML file. A missing slug
// defaults to the file name without its extension.
func LoadFile(path string) (*Role, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role file: %w", err)
	}

	var role Role
	if err := yaml.Unmarshal(data, &role); err != nil {
		return nil, fmt.Errorf("parse role file %s: %w", path, err)
	}
	if role.Slug == "" {
		base := filepath.Base(path)
		role.Slug = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	return &role, nil
}

// LoadDir reads every .yaml/.yml file in dir as a role definition and
// returns the roles ordered by slug.
func LoadDir(dir string) ([]*Role, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read roles dir: %w", err)
	}

	var loaded []*Role
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		role, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, role)
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Slug < loaded[j].Slug })
	return loaded, nil
}
