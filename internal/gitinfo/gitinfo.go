// Package gitinfo reads the HEAD commit of the project's git repository so
// state metadata can record where an iteration started and ended.
package gitinfo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

var (
	// ErrNotRepository is returned when no git repository is found.
	ErrNotRepository = errors.New("not a git repository")

	// ErrNoCommits is returned when the repository has no HEAD commit yet.
	ErrNoCommits = errors.New("repository has no commits")
)

// Commit is the subset of a git commit recorded in state metadata.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
	// Tag is a tag pointing at the commit, if any.
	Tag string `json:"tag,omitempty"`
}

// ShortHash returns the first seven characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return subject
}

// Head returns the HEAD commit of the repository containing dir. Parent
// directories are searched for .git.
func Head(dir string) (*Commit, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return headOf(repo)
}

// HeadFS returns the HEAD commit of a non-bare repository rooted at fs.
func HeadFS(fs billy.Filesystem) (*Commit, error) {
	dotGit, err := fs.Chroot(git.GitDirName)
	if err != nil {
		return nil, fmt.Errorf("access .git directory: %w", err)
	}
	storage := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())
	repo, err := git.Open(storage, fs)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return headOf(repo)
}

func headOf(repo *git.Repository) (*Commit, error) {
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNoCommits
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	c, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	return &Commit{
		Hash:    c.Hash.String(),
		Message: strings.TrimSpace(c.Message),
		Author:  c.Author.Name,
		When:    c.Author.When,
		Tag:     tagFor(repo, c.Hash),
	}, nil
}

// tagFor returns the name of a tag, lightweight or annotated, pointing at hash.
func tagFor(repo *git.Repository, hash plumbing.Hash) string {
	tags, err := repo.Tags()
	if err != nil {
		return ""
	}
	defer tags.Close()

	var name string
	_ = tags.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if tag, err := repo.TagObject(target); err == nil {
			if tag.TargetType != plumbing.CommitObject {
				return nil
			}
			target = tag.Target
		} else if !errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil
		}
		if target == hash {
			name = ref.Name().Short()
			return storer.ErrStop
		}
		return nil
	})
	return name
}
