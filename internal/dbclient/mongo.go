package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tablemerge/internal/log"
)

// mongoConnector implements Connector for MongoDB. A collection plays the
// role of a table; fields of the first-seen documents become columns.
type mongoConnector struct {
	client *mongo.Client
	dbName string
	logger *logrus.Entry

	mu      sync.Mutex
	cursor  *mongo.Cursor
	cancel  context.CancelFunc
	fetched int
}

// mongoQuery is the JSON form Execute accepts.
type mongoQuery struct {
	Collection string         `json:"collection"`
	Operation  string         `json:"operation,omitempty"` // find (default) or aggregate
	Filter     map[string]any `json:"filter,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Pipeline   []any          `json:"pipeline,omitempty"`
}

// MongoFindQuery builds the Execute query reading collection, optionally
// restricted by an Extended JSON filter document.
func MongoFindQuery(collection, filter string) (string, error) {
	q := mongoQuery{Collection: collection}
	if filter != "" {
		if err := json.Unmarshal([]byte(filter), &q.Filter); err != nil {
			return "", fmt.Errorf("invalid mongo filter: %w", err)
		}
	}
	b, err := json.Marshal(q)
	return string(b), err
}

func newMongoConnector(uri string) (*mongoConnector, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongo uri: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		dbName = "test"
	}

	logURI := u.Redacted()
	logger := log.L.WithField("component", "mongo")
	logger.WithFields(logrus.Fields{"uri": logURI, "database": dbName}).Debug("connecting")

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoConnector{client: client, dbName: dbName, logger: logger}, nil
}

// unmarshalEJSON re-encodes a map[string]any field and uses bson.UnmarshalExtJSON
// to convert MongoDB Extended JSON types ($oid, $date, $numberLong, etc.) to BSON.
func (m *mongoConnector) unmarshalEJSON(field map[string]any) any {
	if field == nil {
		return nil
	}
	raw, err := json.Marshal(field)
	if err != nil {
		return field
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		m.logger.WithError(err).Warn("extended json parse failed, using plain json")
		return field
	}
	return doc
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) SelectAll(table string) string {
	q, _ := MongoFindQuery(table, "")
	return q
}

func (m *mongoConnector) Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCursorLocked(ctx)

	if fetchSize <= 0 {
		fetchSize = 50
	}

	var mq mongoQuery
	if err := json.Unmarshal([]byte(query), &mq); err != nil {
		return nil, fmt.Errorf("invalid query JSON: %w", err)
	}
	if mq.Collection == "" {
		return nil, fmt.Errorf("query must specify 'collection'")
	}
	m.logger.WithFields(logrus.Fields{"collection": mq.Collection, "operation": mq.Operation}).Debug("execute")

	coll := m.client.Database(m.dbName).Collection(mq.Collection)
	cctx, cancel := context.WithTimeout(ctx, 5*time.Minute)

	var cursor *mongo.Cursor
	var err error
	switch mq.Operation {
	case "", "find":
		opts := options.Find().SetBatchSize(int32(fetchSize))
		if mq.Projection != nil {
			opts.SetProjection(m.unmarshalEJSON(mq.Projection))
		}
		if mq.Sort != nil {
			opts.SetSort(m.unmarshalEJSON(mq.Sort))
		}
		filter := m.unmarshalEJSON(mq.Filter)
		if filter == nil {
			filter = bson.D{}
		}
		cursor, err = coll.Find(cctx, filter, opts)
	case "aggregate":
		pipeline := mq.Pipeline
		if pipeline == nil {
			pipeline = []any{}
		}
		cursor, err = coll.Aggregate(cctx, pipeline)
	default:
		cancel()
		return nil, fmt.Errorf("unsupported operation: %s", mq.Operation)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", mq.Collection, err)
	}

	m.cursor = cursor
	m.cancel = cancel
	m.fetched = 0
	return m.fetchMongoBatchLocked(cctx, fetchSize)
}

func (m *mongoConnector) FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor == nil {
		return nil, fmt.Errorf("no active cursor, execute a query first")
	}
	if fetchSize <= 0 {
		fetchSize = 50
	}
	return m.fetchMongoBatchLocked(ctx, fetchSize)
}

func (m *mongoConnector) fetchMongoBatchLocked(ctx context.Context, fetchSize int) (*QueryPage, error) {
	var docs []bson.D
	for i := 0; i < fetchSize; i++ {
		if !m.cursor.Next(ctx) {
			break
		}
		var doc bson.D
		if err := m.cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := m.cursor.Err(); err != nil {
		m.closeCursorLocked(ctx)
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	m.fetched += len(docs)

	// Columns in first-seen order.
	colIdx := map[string]int{}
	var columns []string
	for _, doc := range docs {
		for _, elem := range doc {
			if _, ok := colIdx[elem.Key]; !ok {
				colIdx[elem.Key] = len(columns)
				columns = append(columns, elem.Key)
			}
		}
	}

	rows := make([][]any, 0, len(docs))
	for _, doc := range docs {
		row := make([]any, len(columns))
		for _, elem := range doc {
			row[colIdx[elem.Key]] = bsonText(elem.Value)
		}
		rows = append(rows, row)
	}

	hasMore := len(docs) == fetchSize
	if !hasMore {
		m.closeCursorLocked(ctx)
	}
	return &QueryPage{
		Columns:      columns,
		Rows:         rows,
		TotalFetched: m.fetched,
		HasMore:      hasMore,
	}, nil
}

// bsonText renders a field value as cell text; null stays nil.
func bsonText(v any) any {
	switch val := v.(type) {
	case nil, bson.Null, bson.Undefined:
		return nil
	case string:
		return val
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	case bson.D, bson.A:
		b, err := bson.MarshalExtJSON(val, false, false)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// WriteTable drops (replace) and refills the collection. Documents keep the
// column order; nil cells are left out of the document.
func (m *mongoConnector) WriteTable(ctx context.Context, table string, columns []string, rows [][]any, mode WriteMode) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	coll := m.client.Database(m.dbName).Collection(table)
	if mode != WriteAppend {
		if err := coll.Drop(ctx); err != nil {
			return 0, fmt.Errorf("drop %s: %w", table, err)
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	docs := make([]bson.D, len(rows))
	for i, row := range rows {
		doc := make(bson.D, 0, len(columns))
		for j, col := range columns {
			if j < len(row) && row[j] != nil {
				doc = append(doc, bson.E{Key: col, Value: row[j]})
			}
		}
		docs[i] = doc
	}
	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	m.logger.WithField("collection", table).Debugf("inserted %d documents", len(res.InsertedIDs))
	return len(res.InsertedIDs), nil
}

func (m *mongoConnector) Close() error {
	m.mu.Lock()
	m.closeCursorLocked(context.Background())
	m.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *mongoConnector) closeCursorLocked(ctx context.Context) {
	if m.cursor != nil {
		m.cursor.Close(ctx)
		m.cursor = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
