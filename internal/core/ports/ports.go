package ports

import (
	"context"

	"modgraph/internal/core/errors"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/parser"
)

// CodeParser abstracts module extraction for a single source file.
type CodeParser interface {
	Parse(path string, source []byte) (*parser.ParseResult, error)
	IsSupportedPath(path string) bool
}

// ScriptExtractor pulls script fragments out of framework component files.
type ScriptExtractor interface {
	Extract(path string, source []byte) ([]string, error)
}

// SnapshotStore abstracts run persistence for report and diff workflows.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot history.Snapshot) error
	LatestSnapshot(ctx context.Context, project string) (*history.Snapshot, error)
	Prune(ctx context.Context, project string, keep int) (int64, error)
	Close() error
}

// NoopSnapshotStore discards snapshots. LatestSnapshot always reports NOT_FOUND.
type NoopSnapshotStore struct{}

func (NoopSnapshotStore) SaveSnapshot(context.Context, history.Snapshot) error { return nil }

func (NoopSnapshotStore) LatestSnapshot(_ context.Context, project string) (*history.Snapshot, error) {
	return nil, errors.Newf(errors.CodeNotFound, "no runs recorded for project %q", project)
}

func (NoopSnapshotStore) Prune(context.Context, string, int) (int64, error) { return 0, nil }

func (NoopSnapshotStore) Close() error { return nil }

var (
	_ CodeParser      = (*parser.Parser)(nil)
	_ ScriptExtractor = (*parser.ScriptExtractor)(nil)
	_ SnapshotStore   = (*history.Store)(nil)
	_ SnapshotStore   = NoopSnapshotStore{}
)
