package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
)

// GitRemote implements Remote over a local clone of the wrapper repository.
// The CAS property comes from git itself: a push is rejected as
// non-fast-forward whenever the remote branch advanced past our base.
//
// One clone is shared by all platform sessions in a run, so every operation
// that touches the worktree, index, or refs holds mu. Serializing here does
// not serialize the mainline: a session pushing a stale base is still
// rejected by the remote and retries through the controller's CAS loop.
type GitRemote struct {
	mu         sync.Mutex
	repo       *git.Repository
	path       string
	remoteName string
	branch     string
	author     object.Signature
	log        *zap.SugaredLogger
}

// OpenGitRemote opens the configured local clone.
func OpenGitRemote(cfg config.PublishConfig, log *zap.SugaredLogger) (*GitRemote, error) {
	repo, err := git.PlainOpen(cfg.RepoPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open repository at %s", cfg.RepoPath)
	}

	return &GitRemote{
		repo:       repo,
		path:       cfg.RepoPath,
		remoteName: cfg.RemoteName,
		branch:     cfg.Branch,
		author: object.Signature{
			Name:  cfg.AuthorName,
			Email: cfg.AuthorEmail,
		},
		log: log,
	}, nil
}

// Fetch updates the remote-tracking ref and returns the mainline tip.
func (r *GitRemote) Fetch(ctx context.Context) (CommitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: r.remoteName})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return "", errors.Wrapf(err, "failed to fetch %s", r.remoteName)
	}

	ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.remoteName, r.branch), true)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s/%s", r.remoteName, r.branch)
	}

	return CommitID(ref.Hash().String()), nil
}

// Artifact reads the published content at path as of tip.
func (r *GitRemote) Artifact(ctx context.Context, tip CommitID, path string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, err := r.repo.CommitObject(plumbing.NewHash(string(tip)))
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to load commit %s", tip)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to load commit tree")
	}

	file, err := tree.File(path)
	if err == object.ErrFileNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read %s at %s", path, tip)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read contents of %s", path)
	}

	return []byte(content), true, nil
}

// Push rebases the local branch onto base, commits the single-path change,
// and pushes. A non-fast-forward rejection maps to ErrTipMoved so the
// controller can re-fetch and retry.
func (r *GitRemote) Push(ctx context.Context, base CommitID, change Change) (CommitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", errors.Wrap(err, "failed to open worktree")
	}

	// Rebase onto base: the change touches exactly one platform-scoped
	// path, so replaying it is a reset plus a rewrite of that path.
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(r.branch),
		Force:  true,
	}); err != nil {
		return "", errors.Wrapf(err, "failed to checkout %s", r.branch)
	}

	if err := wt.Reset(&git.ResetOptions{
		Commit: plumbing.NewHash(string(base)),
		Mode:   git.HardReset,
	}); err != nil {
		return "", errors.Wrapf(err, "failed to reset onto %s", base)
	}

	abs := filepath.Join(r.path, change.Path)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create artifact directory")
	}
	if err := os.WriteFile(abs, change.Content, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", change.Path)
	}

	// Stage only this platform's artifact path
	if _, err := wt.Add(change.Path); err != nil {
		return "", errors.Wrapf(err, "failed to stage %s", change.Path)
	}

	author := r.author
	author.When = time.Now()
	commitHash, err := wt.Commit(change.Message, &git.CommitOptions{Author: &author})
	if err != nil {
		return "", errors.Wrap(err, "failed to commit")
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", r.branch, r.branch))
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: r.remoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})

	if err == nil || err == git.NoErrAlreadyUpToDate {
		r.log.Debugw("Pushed commit",
			"commit_id", commitHash.String(),
			"path", change.Path)
		return CommitID(commitHash.String()), nil
	}

	if isNonFastForward(err) {
		return "", ErrTipMoved
	}

	return "", errors.Wrap(err, "push failed")
}

// isNonFastForward detects the ref-update race rejection. The receiving
// side reports a stale base either as a non-fast-forward error or as a
// per-ref "failed to update ref" command status; both mean the tip moved
// and the push must be retried from a fresh base, never treated as fatal.
func isNonFastForward(err error) bool {
	if errors.Is(err, git.ErrNonFastForwardUpdate) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "failed to update ref") ||
		strings.Contains(msg, "cannot lock ref")
}
