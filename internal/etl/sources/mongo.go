package sources

import (
	"context"
	"fmt"

	"tablemerge/internal/dbclient"
	"tablemerge/internal/etl"
)

// ── MongoDB Source ──────────────────────────────────────────
// Reads a collection. The header is every field in first-seen order.

type mongoSource struct{}

func init() { etl.RegisterSource(&mongoSource{}) }

func (s *mongoSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:    etl.KindMongo,
		Label:   "MongoDB Collection",
		Example: "mongodb://localhost:27017/surveys?collection=projects",
		Options: []etl.OptionField{
			{Key: "collection", Label: "Collection", Help: "Collection to read"},
			{Key: "filter", Label: "Filter", Help: `Extended JSON filter, e.g. {"status":"active"}`},
		},
	}
}

func (s *mongoSource) Read(ctx context.Context, res etl.Resource) (*etl.Table, error) {
	query, err := dbclient.MongoFindQuery(res.Table, res.Option("filter", ""))
	if err != nil {
		return nil, err
	}

	conn, err := connect(ctx, res)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	page, err := dbclient.ReadAll(ctx, conn, query, fetchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Name(), err)
	}
	return pageToTable(res.Name(), page), nil
}
