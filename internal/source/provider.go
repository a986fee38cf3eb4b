// Package source materializes the pinned native source tree the binding
// generator runs against.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
)

// Tree is a pinned, read-only source checkout shared by all platform
// sessions in a run.
type Tree struct {
	// Root is the local directory holding the source
	Root string

	// Revision is the exact commit the tree was pinned to
	Revision string
}

// Provider supplies the pinned source tree at an exact revision.
type Provider interface {
	Checkout(ctx context.Context, pin *config.Pin) (*Tree, error)
}

// GetterProvider fetches the native library with go-getter, so the source
// URL may be a git repository, an archive, or a local path.
type GetterProvider struct {
	url     string
	workdir string
	log     *zap.SugaredLogger
}

// NewGetterProvider creates a provider fetching from the configured URL into
// the given working directory.
func NewGetterProvider(cfg config.SourceConfig, log *zap.SugaredLogger) *GetterProvider {
	return &GetterProvider{
		url:     cfg.URL,
		workdir: cfg.Workdir,
		log:     log,
	}
}

// Checkout fetches the source at the pinned revision. The checkout directory
// is keyed by revision, so re-running against an unchanged pin reuses the
// existing tree instead of refetching.
func (p *GetterProvider) Checkout(ctx context.Context, pin *config.Pin) (*Tree, error) {
	if err := pin.Validate(); err != nil {
		return nil, err
	}

	dst := filepath.Join(p.workdir, pin.Revision)

	if _, err := os.Stat(dst); err == nil {
		p.log.Debugw("Reusing existing source checkout",
			"revision", pin.Revision,
			"path", dst)
		return p.verified(dst, pin)
	}

	url := p.url
	if strings.HasPrefix(url, "git::") || strings.HasSuffix(url, ".git") {
		url = appendRef(url, pin.Revision)
	}

	p.log.Infow("Fetching native source",
		"url", p.url,
		"revision", pin.Revision)

	client := &getter.Client{
		Ctx:  ctx,
		Src:  url,
		Dst:  dst,
		Mode: getter.ClientModeDir,
	}

	if err := client.Get(); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch source at revision %s", pin.Revision)
	}

	return p.verified(dst, pin)
}

// verified checks that a git checkout actually sits at the pinned revision.
// Non-git trees (archives, local copies) are trusted as fetched.
func (p *GetterProvider) verified(dst string, pin *config.Pin) (*Tree, error) {
	repo, err := git.PlainOpen(dst)
	if err != nil {
		// Not a git tree; the revision key in the path is the pin
		return &Tree{Root: dst, Revision: pin.Revision}, nil
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read checkout HEAD")
	}

	if !strings.HasPrefix(head.Hash().String(), pin.Revision) && !strings.HasPrefix(pin.Revision, head.Hash().String()) {
		return nil, errors.Newf("checkout HEAD %s does not match pinned revision %s",
			head.Hash().String()[:12], pin.Revision)
	}

	return &Tree{Root: dst, Revision: pin.Revision}, nil
}

// appendRef adds a ?ref= query to a go-getter git URL
func appendRef(url, revision string) string {
	if strings.Contains(url, "?") {
		return url + "&ref=" + revision
	}
	return url + "?ref=" + revision
}
