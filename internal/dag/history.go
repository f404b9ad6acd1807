package dag

import (
	"errors"
	"fmt"
	"iter"
)

// ErrHistoryDone is returned by History.Next once the walk has terminated.
var ErrHistoryDone = errors.New("end of history")

// CommitGetter looks up commit records by digest.
type CommitGetter interface {
	Get(Digest) (*Commit, error)
}

// History walks the parent chain one commit per Next call. A failed lookup
// is returned once and ends the walk; a digest seen twice ends it with
// ErrCyclicHistory.
type History struct {
	commits CommitGetter
	next    *Digest
	seen    map[Digest]struct{}
	done    bool
}

// NewHistory starts a walk at start.
func NewHistory(commits CommitGetter, start Digest) *History {
	return &History{
		commits: commits,
		next:    &start,
		seen:    make(map[Digest]struct{}),
	}
}

// Next returns the next commit, the error that ended the walk, or
// ErrHistoryDone.
func (h *History) Next() (*Commit, error) {
	if h.done || h.next == nil {
		h.done = true
		return nil, ErrHistoryDone
	}
	d := *h.next
	if _, ok := h.seen[d]; ok {
		h.done = true
		return nil, newError(KindCyclicHistory, d.String(), fmt.Errorf("commit reached twice"))
	}
	h.seen[d] = struct{}{}

	commit, err := h.commits.Get(d)
	if err != nil {
		h.done = true
		return nil, err
	}
	h.next = commit.ParentHash
	return commit, nil
}

// All yields each commit with a nil error, or a single trailing error.
func (h *History) All() iter.Seq2[*Commit, error] {
	return func(yield func(*Commit, error) bool) {
		for {
			commit, err := h.Next()
			if errors.Is(err, ErrHistoryDone) {
				return
			}
			if !yield(commit, err) {
				return
			}
		}
	}
}

// Log collects up to n commits (all of them when n <= 0), newest first.
// Commits read before a failure are returned along with the error.
func (h *History) Log(n int) ([]*Commit, error) {
	var commits []*Commit
	for commit, err := range h.All() {
		if err != nil {
			return commits, err
		}
		commits = append(commits, commit)
		if n > 0 && len(commits) == n {
			break
		}
	}
	return commits, nil
}
