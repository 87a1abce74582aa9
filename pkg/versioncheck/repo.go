package versioncheck

import (
	"context"
	"errors"
	"log/slog"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const originRemote = "origin"

// maxFirstParentWalk bounds how far back check_commit walks the branch
// history before giving up and reporting CustomBranch; upstream histories
// this deep are effectively unreachable from a sane install anyway.
const maxFirstParentWalk = 100_000

type bareRepo struct {
	repo   *git.Repository
	url    string
	branch string
}

func openOrCloneBare(ctx context.Context, path, url, branch string) (*bareRepo, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		slog.InfoContext(ctx, "Cloning upstream source repository", "url", url, "path", path)

		repo, err = git.PlainCloneContext(ctx, path, true, &git.CloneOptions{
			URL:        url,
			RemoteName: originRemote,
		})
	}

	if err != nil {
		return nil, err
	}

	return &bareRepo{repo: repo, url: url, branch: branch}, nil
}

// updateRemote fetches the configured branch namespace, rewriting the
// remote URL first if the configuration has since changed.
func (b *bareRepo) updateRemote(ctx context.Context) error {
	remote, err := b.repo.Remote(originRemote)
	if err != nil {
		return err
	}

	if len(remote.Config().URLs) == 0 || remote.Config().URLs[0] != b.url {
		if err := b.repo.DeleteRemote(originRemote); err != nil {
			return err
		}
		if _, err := b.repo.CreateRemote(&config.RemoteConfig{
			Name: originRemote,
			URLs: []string{b.url},
		}); err != nil {
			return err
		}
	}

	err = b.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: originRemote,
		RefSpecs:   []config.RefSpec{"+refs/heads/*:refs/heads/*"},
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}

	return nil
}

func (b *bareRepo) branchTip() (plumbing.Hash, error) {
	ref, err := b.repo.Reference(plumbing.NewBranchReferenceName(b.branch), true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}

func (b *bareRepo) commit(sha string) (*object.Commit, error) {
	if !plumbing.IsHash(sha) {
		return nil, plumbing.ErrObjectNotFound
	}
	return b.repo.CommitObject(plumbing.NewHash(sha))
}

// reachableFromTip walks the first-parent chain from tip looking for target.
func (b *bareRepo) reachableFromTip(tip plumbing.Hash, target plumbing.Hash) (bool, error) {
	if tip == target {
		return true, nil
	}

	commit, err := b.repo.CommitObject(tip)
	if err != nil {
		return false, err
	}

	for i := 0; i < maxFirstParentWalk; i++ {
		if commit.Hash == target {
			return true, nil
		}

		if commit.NumParents() == 0 {
			return false, nil
		}

		commit, err = commit.Parent(0)
		if err != nil {
			return false, common.NewRetriableError(err)
		}
	}

	return false, nil
}
