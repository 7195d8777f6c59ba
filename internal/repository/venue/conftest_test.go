package venue

import (
	"context"

	"github.com/kailas-cloud/personarec/internal/db/cypher"
)

// fakeExecutor records written groups and serves canned query rows.
type fakeExecutor struct {
	groups   [][]cypher.Statement
	writeErr map[int]error // by group position within a WriteGroups call
	queries  []cypher.Statement
	rows     []map[string]any
	queryErr error
}

func (f *fakeExecutor) WriteGroups(_ context.Context, groups [][]cypher.Statement) []error {
	errs := make([]error, len(groups))
	for i, g := range groups {
		if err := f.writeErr[i]; err != nil {
			errs[i] = err
			continue
		}
		f.groups = append(f.groups, g)
	}
	return errs
}

func (f *fakeExecutor) Query(_ context.Context, st cypher.Statement) ([]map[string]any, error) {
	f.queries = append(f.queries, st)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}
