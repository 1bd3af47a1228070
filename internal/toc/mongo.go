package toc

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
)

const (
	textIndexName   = "text_all"
	uniqueIndexName = "meta_uniq"
)

// MongoConfig locates the TOC collection.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// MongoStore keeps the TOC in a MongoDB collection with a text index.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
	mu      sync.Mutex // serializes Reindex
}

// mongoDoc is the stored form of a record. Seq preserves insertion order.
type mongoDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	feature.Record `bson:",inline"`
	Terms          string `bson:"terms"`
	Seq            int    `bson:"seq"`
}

// OpenMongo connects, verifies the server is reachable within the connect
// timeout and ensures the collection indexes exist.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.URI == "" || cfg.Database == "" || cfg.Collection == "" {
		return nil, apperr.Newf(apperr.InvalidArgument, "mongo toc requires uri, database and collection")
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, "connecting to mongo", err)
	}

	s := &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.ConnectTimeout,
	}
	if err := s.Ping(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "repo", Value: 1}, {Key: "path", Value: 1}, {Key: "hash", Value: 1}},
			Options: options.Index().SetName(uniqueIndexName).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "terms", Value: "text"}, {Key: "bucket", Value: "text"}, {Key: "notes", Value: "text"}},
			Options: options.Index().SetName(textIndexName),
		},
		{
			Keys: bson.D{{Key: "seq", Value: 1}},
		},
	})
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, "creating toc indexes", err)
	}
	return nil
}

// Ping fails fast with StoreUnavailable when the server cannot be selected
// within the connect timeout.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Ping(ctx, nil); err != nil {
		return apperr.New(apperr.StoreUnavailable, "mongo toc unreachable", err)
	}
	return nil
}

// Reindex deletes every document and inserts the deduplicated records. The
// replacement is not atomic: a failure after the delete leaves the
// collection partially populated.
func (s *MongoStore) Reindex(ctx context.Context, records []feature.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Ping(ctx); err != nil {
		return 0, err
	}

	kept, dups := feature.Dedup(records)
	logDuplicates(dups)

	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return 0, mongoErr("clearing toc", err)
	}
	if len(kept) == 0 {
		return 0, nil
	}

	docs := make([]any, len(kept))
	for i, r := range kept {
		docs[i] = mongoDoc{Record: r, Terms: IndexTerms(r), Seq: i}
	}
	res, err := s.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, mongoErr("inserting toc records", err)
	}
	slog.Info("toc reindexed", "backend", "mongo", "inserted", len(res.InsertedIDs), "duplicates", len(dups))
	return len(res.InsertedIDs), nil
}

// Search runs a $text query sorted by text score.
func (s *MongoStore) Search(ctx context.Context, query string, k int, filters map[string]string) ([]Hit, error) {
	if err := ValidateK(k); err != nil {
		return nil, err
	}
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "query %q has no searchable terms", query)
	}
	exact, err := NormalizeSearchFilters(filters)
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}

	filter := bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: strings.Join(terms, " ")}}}}
	for _, field := range sortedKeys(exact) {
		filter = append(filter, bson.E{Key: field, Value: exact[field]})
	}
	score := bson.D{{Key: "$meta", Value: "textScore"}}
	opts := options.Find().
		SetProjection(bson.D{{Key: "score", Value: score}}).
		SetSort(bson.D{{Key: "score", Value: score}}).
		SetLimit(int64(k))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoErr("searching toc", err)
	}
	var hits []Hit
	if err := cur.All(ctx, &hits); err != nil {
		return nil, mongoErr("decoding hits", err)
	}
	return hits, nil
}

// Query evaluates f with a strength-2 collation so equality is case-insensitive.
func (s *MongoStore) Query(ctx context.Context, f Filter, limit int) ([]feature.Record, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	opts := options.Find().
		SetCollation(&options.Collation{Locale: "en", Strength: 2}).
		SetSort(bson.D{{Key: "seq", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.coll.Find(ctx, renderBSON(f.Root), opts)
	if err != nil {
		return nil, mongoErr("querying toc", err)
	}
	var docs []mongoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decoding records", err)
	}
	records := make([]feature.Record, len(docs))
	for i, d := range docs {
		records[i] = d.Record
	}
	return records, nil
}

func (s *MongoStore) Count(ctx context.Context) (int, error) {
	if err := s.Ping(ctx); err != nil {
		return 0, err
	}
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mongoErr("counting toc records", err)
	}
	return int(n), nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mongoErr(msg string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.New(apperr.DuplicateRecord, msg, err)
	}
	return apperr.New(apperr.StoreUnavailable, msg, err)
}

// absent matches a missing optional field or one stored as "".
var absent = bson.A{nil, ""}

// renderBSON renders a filter node as a MongoDB query document.
func renderBSON(n Node) bson.M {
	if n.IsLeaf() {
		return bsonCondition(*n.Cond)
	}
	if len(n.Children) == 0 {
		return bson.M{}
	}
	parts := make(bson.A, 0, len(n.Children))
	for _, c := range n.Children {
		parts = append(parts, renderBSON(c))
	}
	if n.Or {
		return bson.M{"$or": parts}
	}
	return bson.M{"$and": parts}
}

func bsonCondition(c Condition) bson.M {
	switch c.Op {
	case OpEq:
		if c.Values[0] == "" {
			return bson.M{c.Field: bson.M{"$in": absent}}
		}
		return bson.M{c.Field: c.Values[0]}
	case OpNe:
		if c.Values[0] == "" {
			return bson.M{c.Field: bson.M{"$nin": absent}}
		}
		return bson.M{c.Field: bson.M{"$ne": c.Values[0]}}
	case OpIn, OpNotIn:
		list := make(bson.A, 0, len(c.Values)+1)
		for _, v := range c.Values {
			if v == "" {
				list = append(list, nil)
			}
			list = append(list, v)
		}
		return bson.M{c.Field: bson.M{string(c.Op): list}}
	case OpRegex:
		return bson.M{c.Field: primitive.Regex{Pattern: c.Values[0], Options: "i"}}
	case OpContains:
		return bson.M{c.Field: primitive.Regex{Pattern: regexp.QuoteMeta(c.Values[0]), Options: "i"}}
	case OpExists:
		if c.Values[0] == "true" {
			return bson.M{c.Field: bson.M{"$nin": absent}}
		}
		return bson.M{c.Field: bson.M{"$in": absent}}
	}
	panic(fmt.Sprintf("toc: unhandled filter operator %q", c.Op))
}

var _ Store = (*MongoStore)(nil)
