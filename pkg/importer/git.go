package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/trustify/trustify/pkg/adapter"
	"github.com/trustify/trustify/pkg/apperr"
)

// gitContinuation is the JSON shape persisted between Git walker runs
// (spec.md §4.10: "Git: {commit: \"<sha>\"}").
type gitContinuation struct {
	Commit string `json:"commit"`
}

// GitWalker clones a repository shallowly into a per-importer working
// directory, fetches and hard-resets on subsequent runs, and walks
// only the files that changed between the previous and current HEAD
// (original_source/modules/importer/src/runner/common/walker/git.rs).
type GitWalker struct {
	Name       string
	Config     GitConfig
	WorkDir    string
	CloneDepth int
	Timeout    time.Duration
	Ingest     IngestFunc
	Labels     LabelWriter
}

func (w *GitWalker) Run(ctx context.Context, continuation []byte, report *ReportBuilder) ([]byte, error) {
	var prev gitContinuation
	if len(continuation) > 0 {
		if err := json.Unmarshal(continuation, &prev); err != nil {
			return nil, apperr.Wrap(apperr.KindParse, err, "parse git continuation for %q", w.Name)
		}
	}

	clctx, cancel := context.WithTimeout(ctx, w.cloneTimeout())
	defer cancel()

	repo, err := w.openOrClone(clctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneric, err, "open/clone %q", w.Config.URL)
	}

	head, err := w.fetchAndReset(clctx, repo)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneric, err, "fetch/reset %q", w.Config.URL)
	}

	if prev.Commit == head.String() {
		return continuation, nil // nothing changed since last run
	}

	files, err := w.changedFiles(repo, prev.Commit, head)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneric, err, "diff %q", w.Config.URL)
	}

	for _, f := range files {
		select {
		case <-ctx.Done():
			next, _ := json.Marshal(gitContinuation{Commit: head.String()})
			return next, ctx.Err()
		default:
		}
		w.processFile(ctx, f, report)
	}

	next, err := json.Marshal(gitContinuation{Commit: head.String()})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneric, err, "marshal continuation for %q", w.Name)
	}
	return next, nil
}

func (w *GitWalker) cloneTimeout() time.Duration {
	if w.Timeout > 0 {
		return w.Timeout
	}
	return 5 * time.Minute
}

func (w *GitWalker) openOrClone(ctx context.Context) (*git.Repository, error) {
	dir := w.WorkDir
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, err
	}
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return nil, mkErr
	}
	depth := w.CloneDepth
	if depth <= 0 {
		depth = 1
	}
	return git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           w.Config.URL,
		ReferenceName: plumbing.NewBranchReferenceName(w.Config.Branch),
		SingleBranch:  true,
		Depth:         depth,
	})
}

func (w *GitWalker) fetchAndReset(ctx context.Context, repo *git.Repository) (plumbing.Hash, error) {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs: []config.RefSpec{
			config.RefSpec("+refs/heads/" + w.Config.Branch + ":refs/remotes/origin/" + w.Config.Branch),
		},
		Force: true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) && !errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return plumbing.ZeroHash, err
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", w.Config.Branch), true)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return plumbing.ZeroHash, err
	}
	return remoteRef.Hash(), nil
}

// changedFiles returns the paths that differ between prevCommit (the
// continuation from the last run) and head. An empty prevCommit means
// first run: every file under the configured sub-path is returned.
func (w *GitWalker) changedFiles(repo *git.Repository, prevCommit string, head plumbing.Hash) ([]string, error) {
	headCommit, err := repo.CommitObject(head)
	if err != nil {
		return nil, err
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}

	if prevCommit == "" {
		var files []string
		err := headTree.Files().ForEach(func(f *object.File) error {
			if w.inScope(f.Name) {
				files = append(files, f.Name)
			}
			return nil
		})
		return files, err
	}

	prevHash := plumbing.NewHash(prevCommit)
	prevCommitObj, err := repo.CommitObject(prevHash)
	if err != nil {
		// The recorded commit no longer exists locally (shallow history
		// rewritten underneath us) — fall back to a full walk.
		var files []string
		err := headTree.Files().ForEach(func(f *object.File) error {
			if w.inScope(f.Name) {
				files = append(files, f.Name)
			}
			return nil
		})
		return files, err
	}
	prevTree, err := prevCommitObj.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := prevTree.Diff(headTree)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, change := range changes {
		if change.To.Name != "" && w.inScope(change.To.Name) {
			files = append(files, change.To.Name)
		}
	}
	return files, nil
}

// inScope reports whether name falls under the importer's configured
// sub-path and isn't hidden, rejecting any path that would escape the
// configured root via "..".
func (w *GitWalker) inScope(name string) bool {
	if strings.Contains(name, "..") {
		return false
	}
	if isHidden(name) {
		return false
	}
	if w.Config.Path == "" {
		return true
	}
	return strings.HasPrefix(name, strings.TrimSuffix(w.Config.Path, "/")+"/")
}

func isHidden(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func (w *GitWalker) processFile(ctx context.Context, path string, report *ReportBuilder) {
	repo, err := git.PlainOpen(w.WorkDir)
	if err != nil {
		report.AddError(PhaseRetrieval, path, err.Error())
		return
	}
	head, err := repo.Head()
	if err != nil {
		report.AddError(PhaseRetrieval, path, err.Error())
		return
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		report.AddError(PhaseRetrieval, path, err.Error())
		return
	}
	tree, err := commit.Tree()
	if err != nil {
		report.AddError(PhaseRetrieval, path, err.Error())
		return
	}
	file, err := tree.File(path)
	if err != nil {
		report.AddError(PhaseRetrieval, path, err.Error())
		return
	}
	contents, err := file.Reader()
	if err != nil {
		report.AddError(PhaseRetrieval, path, err.Error())
		return
	}
	defer contents.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, contents); err != nil {
		report.AddError(PhaseRetrieval, path, err.Error())
		return
	}
	report.Tick()

	result, err := w.Ingest(ctx, bytes.NewReader(buf.Bytes()), adapter.FormatUnknown)
	if err != nil {
		report.AddError(PhaseUpload, path, err.Error())
		return
	}
	if result.Skipped {
		report.AddMessage(PhaseUpload, path, "digest already on record, skipped")
		return
	}
	report.AddMessage(PhaseUpload, path, "ingested as "+string(result.Format))

	if w.Labels == nil {
		return
	}
	labels := map[string]string{"source": "git", "importer": w.Name, "file": path}
	if err := w.Labels(ctx, result, labels); err != nil {
		report.AddError(PhaseUpload, path, "set labels: "+err.Error())
	}
}
