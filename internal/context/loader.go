// Package context works out which documents, templates and state fields a
// unit of lifecycle work needs, and how much of a context window they take.
package context

import (
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/solodevflow/solodev/internal/fileio"
	"github.com/solodevflow/solodev/internal/state"
)

const (
	// DefaultDocsDir is the documents root, relative to the project root.
	DefaultDocsDir = "docs"
	// TemplateSubdir holds the document templates inside the state directory.
	TemplateSubdir = "templates"
)

// Rule describes what a phase needs in context.
type Rule struct {
	StateFields []string
	// Templates are file names inside the template directory.
	Templates   []string
	Description string
}

// PhaseRules maps each phase to its context rule.
var PhaseRules = map[state.Phase]Rule{
	state.PhaseRequirements: {
		StateFields: []string{"project", "currentIteration", "iterations.*.phases.requirements"},
		Templates:   []string{"PRD-project-template.md", "PRD-module-template.md"},
		Description: "requirements phase: PRD templates and project state, used to clarify requirements and write PRDs",
	},
	state.PhaseArchitecture: {
		StateFields: []string{
			"project", "currentIteration",
			"iterations.*.phases.requirements", "iterations.*.phases.architecture",
			"moduleDependencies",
		},
		Templates: []string{
			"architecture-overview-template.md",
			"architecture-data-model-template.md",
			"architecture-integration-template.md",
		},
		Description: "architecture phase: approved PRDs, architecture templates and module dependencies, used for architecture design",
	},
	state.PhaseImplementation: {
		StateFields: []string{
			"project", "currentIteration",
			"iterations.*.phases.architecture", "iterations.*.phases.implementation",
			"moduleDependencies",
		},
		Templates:   []string{},
		Description: "implementation phase: approved architecture documents, used to implement the code",
	},
	state.PhaseTesting: {
		StateFields: []string{
			"project", "currentIteration",
			"iterations.*.phases.requirements", "iterations.*.phases.architecture",
			"iterations.*.phases.testing",
		},
		Templates:   []string{"test-e2e-plan-template.md", "test-performance-plan-template.md"},
		Description: "testing phase: PRD acceptance criteria, architecture documents and test templates, used to design and run tests",
	},
	state.PhaseDeployment: {
		StateFields: []string{"project", "currentIteration", "iterations.*.phases.deployment"},
		Templates:   []string{"deployment-plan-template.md", "deployment-release-checklist-template.md"},
		Description: "deployment phase: architecture documents and deployment templates, used to write the deployment plan",
	},
}

// Result is the context for a phase or a module.
type Result struct {
	Success     bool     `json:"success" yaml:"success"`
	Files       []string `json:"files" yaml:"files"`
	Templates   []string `json:"templates" yaml:"templates"`
	StateFields []string `json:"stateFields" yaml:"stateFields"`
	Description string   `json:"description" yaml:"description"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
	Budget      *Budget  `json:"budget,omitempty" yaml:"budget,omitempty"`
}

func failure(format string, args ...any) *Result {
	return &Result{
		Files:       []string{},
		Templates:   []string{},
		StateFields: []string{},
		Error:       fmt.Sprintf(format, args...),
	}
}

// Loader resolves context against a project's state and documents.
type Loader struct {
	repo        *state.Repository
	fio         *fileio.FileIO
	docsDir     string
	templateDir string
	maxTokens   int
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxTokens sets the context window the budget is measured against.
func WithMaxTokens(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxTokens = n
		}
	}
}

// WithDocsDir sets the documents root, relative to the project root.
func WithDocsDir(dir string) Option {
	return func(l *Loader) {
		if dir != "" {
			l.docsDir = path.Clean(dir)
		}
	}
}

// WithTemplateDir sets the template directory, relative to the project root.
// It defaults to the templates directory next to state.json.
func WithTemplateDir(dir string) Option {
	return func(l *Loader) {
		if dir != "" {
			l.templateDir = path.Clean(dir)
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a loader reading state through repo.
func NewLoader(repo *state.Repository, opts ...Option) *Loader {
	l := &Loader{
		repo:        repo,
		fio:         repo.FileIO(),
		docsDir:     DefaultDocsDir,
		templateDir: path.Join(path.Dir(repo.StatePath()), TemplateSubdir),
		maxTokens:   DefaultMaxTokens,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ForPhase returns the context for work in phase: the state file, the
// phase templates that exist, and outside requirements the documents of
// every module approved in the prerequisite phase.
func (l *Loader) ForPhase(phase state.Phase) *Result {
	rule, ok := PhaseRules[phase]
	if !ok {
		return failure("invalid phase: %s", phase)
	}
	st, err := l.repo.Read()
	if err != nil {
		return failure("state.json does not exist or is malformed: %v", err)
	}

	files := []string{l.repo.StatePath()}
	if prereq, ok := prerequisite(phase); ok {
		for _, m := range approvedModules(st, prereq) {
			files = append(files, l.moduleFiles(m, phase, st.CurrentIteration)...)
		}
	}
	return l.finish(&Result{
		Success:     true,
		Files:       files,
		Templates:   l.templates(rule.Templates),
		StateFields: rule.StateFields,
		Description: rule.Description,
	})
}

// ForModule narrows the phase context to one module: its own documents plus
// the documents of the modules it depends on. Outside requirements a
// dependency is only included once approved in the prerequisite phase.
func (l *Loader) ForModule(module string, phase state.Phase) *Result {
	rule, ok := PhaseRules[phase]
	if !ok {
		return failure("invalid phase: %s", phase)
	}
	st, err := l.repo.Read()
	if err != nil {
		return failure("state.json does not exist or is malformed: %v", err)
	}
	dep, ok := st.ModuleDependencies[module]
	if !ok {
		return failure("invalid module: %s", module)
	}
	if dep == nil {
		dep = &state.ModuleDependency{}
	}

	files := []string{l.repo.StatePath()}
	files = append(files, l.moduleFiles(module, phase, st.CurrentIteration)...)

	var warnings []string
	prereq, gated := prerequisite(phase)
	approved := approvedModules(st, prereq)
	for _, d := range dep.DependsOn {
		if gated && !slices.Contains(approved, d) {
			warnings = append(warnings, skippedWarning(st, prereq, d))
			continue
		}
		files = append(files, l.moduleFiles(d, phase, st.CurrentIteration)...)
	}

	return l.finish(&Result{
		Success:     true,
		Files:       dedupe(files),
		Templates:   l.templates(rule.Templates),
		StateFields: rule.StateFields,
		Description: rule.Description + "\ncurrent module: " + module,
		Warnings:    warnings,
	})
}

func (l *Loader) finish(res *Result) *Result {
	res.Budget = l.budget(append(slices.Clone(res.Files), res.Templates...))
	l.logger.Debug("context resolved",
		"files", len(res.Files),
		"templates", len(res.Templates),
		"tokens", res.Budget.Tokens,
		"warnings", len(res.Warnings))
	return res
}

// prerequisite returns the phase whose approved documents feed phase.
// Requirements has none.
func prerequisite(phase state.Phase) (state.Phase, bool) {
	switch phase {
	case state.PhaseRequirements:
		return "", false
	case state.PhaseArchitecture:
		return state.PhaseRequirements, true
	default:
		return state.PhaseArchitecture, true
	}
}

func skippedWarning(st *state.State, prereq state.Phase, dep string) string {
	doc := "architecture document"
	if prereq == state.PhaseRequirements {
		doc = "PRD"
	}
	if _, ok := modulesOf(st, prereq)[dep]; ok {
		return fmt.Sprintf("dependency %q: %s not yet approved, skipped", dep, doc)
	}
	return fmt.Sprintf("dependency %q: %s not yet completed, skipped", dep, doc)
}

func modulesOf(st *state.State, phase state.Phase) map[string]*state.ModuleState {
	it, ok := st.Iterations[st.CurrentIteration]
	if !ok || it == nil {
		return nil
	}
	ps := it.Phases.Get(phase)
	if ps == nil {
		return nil
	}
	return ps.Modules
}

// approvedModules returns the modules approved in phase, sorted by name.
func approvedModules(st *state.State, phase state.Phase) []string {
	var names []string
	for name, m := range modulesOf(st, phase) {
		if m != nil && m.Status == state.ModuleApproved {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// iterationNumber extracts N from "iteration-N", defaulting to "1".
func iterationNumber(id string) string {
	if _, n, ok := strings.Cut(id, "-"); ok && n != "" {
		return n
	}
	return "1"
}

// moduleFiles lists the existing documents of module: its PRD and, outside
// requirements, the architecture documents of the current iteration whose
// names start with the module name.
func (l *Loader) moduleFiles(module string, phase state.Phase, iteration string) []string {
	var files []string
	prd := path.Join(l.docsDir, "PRD", "modules", module+"-PRD.md")
	if l.fio.Exists(prd) {
		files = append(files, prd)
	}
	if phase == state.PhaseRequirements {
		return files
	}

	dir := path.Join(l.docsDir, "architecture", "iteration-"+iterationNumber(iteration))
	entries, err := l.fio.FS().ReadDir(dir)
	if err != nil {
		return files
	}
	var arch []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, module) && strings.HasSuffix(name, ".md") {
			arch = append(arch, path.Join(dir, name))
		}
	}
	sort.Strings(arch)
	return append(files, arch...)
}

// templates returns the paths of the named templates that exist.
func (l *Loader) templates(names []string) []string {
	out := []string{}
	for _, n := range names {
		if p := path.Join(l.templateDir, n); l.fio.Exists(p) {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
