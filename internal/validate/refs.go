package validate

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/solodevflow/solodev/internal/fileio"
	"github.com/solodevflow/solodev/internal/worker"
)

// DefaultDocsDir is the documentation root scanned for references.
const DefaultDocsDir = "docs"

var (
	linkPattern          = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	headingWithIDPattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*\{#([^}]+)\}\s*$`)
	headingPattern       = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	inlineCodePattern    = regexp.MustCompile("`[^`]+`")
	leadingNumberPattern = regexp.MustCompile(`^[\d.]+\s*`)
	slugUnsafePattern    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	moduleFilePattern    = regexp.MustCompile(`/([^/]+)-(?:PRD|00-system-architecture-overview|00-系统架构总览|data-model-design|数据模型设计|integration-design|集成设计)\.md$`)
)

// requiredSections lists headings that must carry an explicit {#id} in
// documents whose path matches file.
type requiredSections struct {
	file     *regexp.Regexp
	prefix   string
	headings []*regexp.Regexp
}

func heading(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^#+\s*[\d.]*\s*(?:` + alternatives + `)`)
}

var requiredSectionRules = []requiredSections{
	{
		file:   regexp.MustCompile(`(?:^|/)PRD/modules/.*-PRD\.md$`),
		prefix: "prd-",
		headings: []*regexp.Regexp{
			heading(`Command List|Interface List|Feature List|命令清单|接口清单|功能点清单|功能清单`),
			heading(`Data Model|数据模型`),
			heading(`Acceptance Criteria|User Stories and Acceptance Criteria|验收标准|用户故事与验收标准`),
		},
	},
	{
		file:   regexp.MustCompile(`(?:^|/)architecture/.*-00-(?:system-architecture-overview|系统架构总览)\.md$`),
		prefix: "arch-",
		headings: []*regexp.Regexp{
			heading(`Technical Architecture|Architecture Overview|技术架构|架构概述`),
			heading(`External Interfaces|对外接口`),
		},
	},
	{
		file:   regexp.MustCompile(`(?:^|/)architecture/.*(?:data-model-design|数据模型设计)\.md$`),
		prefix: "arch-",
		headings: []*regexp.Regexp{
			heading(`Schema Definitions?|Type Definitions?|Core Types|Schema定义|类型定义|核心类型`),
		},
	},
	{
		file:   regexp.MustCompile(`(?:^|/)architecture/.*(?:integration-design|集成设计)\.md$`),
		prefix: "arch-",
		headings: []*regexp.Regexp{
			heading(`Interface Definitions?|Integration Points?|接口定义|集成点`),
		},
	},
}

// Reference is a markdown link from one document to another.
type Reference struct {
	SourceFile    string `json:"sourceFile"`
	SourceLine    int    `json:"sourceLine"`
	TargetFile    string `json:"targetFile"`
	TargetSection string `json:"targetSection,omitempty"`
	Text          string `json:"referenceText"`
}

// SectionID is a heading that declares an explicit {#id}.
type SectionID struct {
	File    string `json:"file"`
	Section string `json:"sectionName"`
	Line    int    `json:"lineNumber"`
	ID      string `json:"id"`
}

// MissingID is a heading that should declare an id but does not.
type MissingID struct {
	File        string `json:"file"`
	Section     string `json:"sectionName"`
	Line        int    `json:"lineNumber"`
	SuggestedID string `json:"requiredId"`
}

// DuplicateID is an id declared more than once across the docs.
type DuplicateID struct {
	ID          string      `json:"id"`
	Occurrences []SectionID `json:"occurrences"`
}

// ReferenceSummary counts the findings of a reference validation.
type ReferenceSummary struct {
	TotalReferences int `json:"totalReferences"`
	ValidReferences int `json:"validReferences"`
	BrokenFiles     int `json:"brokenFiles"`
	BrokenSections  int `json:"brokenSections"`
	MissingIDs      int `json:"missingIds"`
	DuplicateIDs    int `json:"duplicateIds"`
}

// ReferenceResult is the outcome of ValidateReferences. Broken files,
// broken sections and duplicate ids are errors; missing ids are warnings.
type ReferenceResult struct {
	Valid         bool             `json:"valid"`
	DocsDir       string           `json:"docsDir"`
	Errors        []string         `json:"errors,omitempty"`
	Summary       ReferenceSummary `json:"summary"`
	ValidRefs     []Reference      `json:"validRefs"`
	BrokenFile    []Reference      `json:"brokenFile"`
	BrokenSection []Reference      `json:"brokenSection"`
	MissingID     []MissingID      `json:"missingId"`
	DuplicateID   []DuplicateID    `json:"duplicateId"`
	SectionIDs    []SectionID      `json:"allSectionIds"`
}

// RefOption configures ValidateReferences.
type RefOption func(*refConfig)

type refConfig struct {
	concurrency int
}

// WithConcurrency sets how many documents are parsed in parallel.
func WithConcurrency(n int) RefOption {
	return func(c *refConfig) { c.concurrency = n }
}

// document is one parsed markdown file.
type document struct {
	path    string
	content string
	refs    []Reference
	ids     []SectionID
	missing []MissingID
}

// ValidateReferences scans every markdown file under docsDir and checks
// that each relative link resolves to an existing file and, when it names a
// section, that the target declares that {#id}.
func ValidateReferences(ctx context.Context, fio *fileio.FileIO, docsDir string, opts ...RefOption) (*ReferenceResult, error) {
	if docsDir == "" {
		docsDir = DefaultDocsDir
	}
	cfg := refConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	res := &ReferenceResult{
		Valid:         true,
		DocsDir:       docsDir,
		ValidRefs:     []Reference{},
		BrokenFile:    []Reference{},
		BrokenSection: []Reference{},
		MissingID:     []MissingID{},
		DuplicateID:   []DuplicateID{},
		SectionIDs:    []SectionID{},
	}

	info, err := fio.Stat(docsDir)
	if err != nil || !info.IsDir() {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("docs directory not found: %s", docsDir))
		return res, nil
	}

	files, err := scanMarkdown(fio, docsDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", docsDir, err)
	}

	pool := worker.NewPool[string, *document](cfg.concurrency)
	results := pool.Process(ctx, files, func(_ context.Context, p string) (*document, error) {
		data, err := fio.ReadRaw(p)
		if err != nil {
			return nil, err
		}
		return parseDocument(p, string(data)), nil
	})

	docs := make(map[string]*document, len(results))
	var refs []Reference
	for _, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("parse document: %w", r.Err)
		}
		d := r.Value
		docs[d.path] = d
		refs = append(refs, d.refs...)
		res.SectionIDs = append(res.SectionIDs, d.ids...)
		res.MissingID = append(res.MissingID, d.missing...)
	}
	res.DuplicateID = duplicateIDs(res.SectionIDs)

	for _, ref := range refs {
		res.Summary.TotalReferences++
		if !fio.Exists(ref.TargetFile) {
			res.BrokenFile = append(res.BrokenFile, ref)
			continue
		}
		if ref.TargetSection != "" {
			if !strings.Contains(targetContent(fio, docs, ref.TargetFile), "{#"+ref.TargetSection+"}") {
				res.BrokenSection = append(res.BrokenSection, ref)
				continue
			}
		}
		res.ValidRefs = append(res.ValidRefs, ref)
	}

	res.Summary.ValidReferences = len(res.ValidRefs)
	res.Summary.BrokenFiles = len(res.BrokenFile)
	res.Summary.BrokenSections = len(res.BrokenSection)
	res.Summary.MissingIDs = len(res.MissingID)
	res.Summary.DuplicateIDs = len(res.DuplicateID)
	res.Valid = len(res.BrokenFile) == 0 && len(res.BrokenSection) == 0 && len(res.DuplicateID) == 0
	return res, nil
}

// scanMarkdown lists .md files under root in lexical order, skipping
// node_modules and .git.
func scanMarkdown(fio *fileio.FileIO, root string) ([]string, error) {
	var files []string
	err := util.Walk(fio.FS(), root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if name := info.Name(); name == "node_modules" || name == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(info.Name(), ".md") {
			files = append(files, filepath.ToSlash(p))
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// targetContent returns the text of a reference target. Unreadable targets,
// such as directories, have no sections.
func targetContent(fio *fileio.FileIO, docs map[string]*document, p string) string {
	if d, ok := docs[p]; ok {
		return d.content
	}
	data, err := fio.ReadRaw(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// codeBlockLines marks the lines inside fenced code blocks, fences included.
func codeBlockLines(lines []string) []bool {
	marks := make([]bool, len(lines))
	inBlock := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			marks[i] = true
			inBlock = !inBlock
			continue
		}
		marks[i] = inBlock
	}
	return marks
}

func parseDocument(p, content string) *document {
	d := &document{path: p, content: content}
	lines := strings.Split(content, "\n")
	inCode := codeBlockLines(lines)
	rules := rulesFor(p)

	for i, line := range lines {
		if inCode[i] {
			continue
		}
		lineNo := i + 1

		for _, m := range linkPattern.FindAllStringSubmatch(inlineCodePattern.ReplaceAllString(line, ""), -1) {
			if ref, ok := newReference(p, lineNo, m[0], m[2]); ok {
				d.refs = append(d.refs, ref)
			}
		}

		if m := headingWithIDPattern.FindStringSubmatch(line); m != nil {
			d.ids = append(d.ids, SectionID{File: p, Section: strings.TrimSpace(m[2]), Line: lineNo, ID: m[3]})
			continue
		}
		if len(rules) == 0 || strings.Contains(line, "{#") {
			continue
		}
		hm := headingPattern.FindStringSubmatch(line)
		if hm == nil {
			continue
		}
		for _, rule := range rules {
			for _, h := range rule.headings {
				if h.MatchString(line) {
					d.missing = append(d.missing, MissingID{
						File:        p,
						Section:     strings.TrimSpace(hm[2]),
						Line:        lineNo,
						SuggestedID: suggestID(rule.prefix, p, hm[2]),
					})
				}
			}
		}
	}
	return d
}

// newReference resolves href relative to the source document. External
// links and pure anchors are not references.
func newReference(source string, line int, text, href string) (Reference, bool) {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return Reference{}, false
	}
	target, section, _ := strings.Cut(href, "#")
	if target == "" {
		return Reference{}, false
	}
	return Reference{
		SourceFile:    source,
		SourceLine:    line,
		TargetFile:    path.Join(path.Dir(source), target),
		TargetSection: section,
		Text:          text,
	}, true
}

func rulesFor(p string) []requiredSections {
	var out []requiredSections
	for _, r := range requiredSectionRules {
		if r.file.MatchString(p) {
			out = append(out, r)
		}
	}
	return out
}

// suggestID builds an id like prd-auth-data-model from the document's module
// name and the heading text without its numbering.
func suggestID(prefix, file, section string) string {
	module := "unknown"
	if m := moduleFilePattern.FindStringSubmatch(file); m != nil {
		module = m[1]
	}
	name := leadingNumberPattern.ReplaceAllString(strings.TrimSpace(section), "")
	slug := strings.Trim(slugUnsafePattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	return prefix + module + "-" + slug
}

// duplicateIDs groups ids declared more than once, ordered by first
// occurrence.
func duplicateIDs(ids []SectionID) []DuplicateID {
	byID := map[string][]SectionID{}
	var order []string
	for _, s := range ids {
		if _, seen := byID[s.ID]; !seen {
			order = append(order, s.ID)
		}
		byID[s.ID] = append(byID[s.ID], s)
	}
	out := []DuplicateID{}
	for _, id := range order {
		if occ := byID[id]; len(occ) > 1 {
			out = append(out, DuplicateID{ID: id, Occurrences: occ})
		}
	}
	return out
}
