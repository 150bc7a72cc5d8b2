// Package mongo stores periods as documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
	"budget/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase   = "streamlit"
	DefaultCollection = "budget_tracking"

	updateAttempts = 3
)

var errConcurrentUpdate = errors.New("period modified concurrently")

type Repository struct {
	cli  *mongo.Client
	coll *mongo.Collection
	now  func() time.Time
}

var _ storage.PeriodStore = (*Repository)(nil)

type periodDocument struct {
	Key       string       `bson:"key"`
	Incomes   core.Amounts `bson:"incomes"`
	Expenses  core.Amounts `bson:"expenses"`
	Comment   string       `bson:"comment"`
	Revision  int64        `bson:"revision,omitempty"`
	CreatedAt time.Time    `bson:"created_at,omitempty"`
	UpdatedAt time.Time    `bson:"updated_at,omitempty"`
}

// Connect dials the server, verifies it and makes sure the unique index on
// key exists.
func Connect(ctx context.Context, uri, database, collection string) (*Repository, error) {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, storage.Unavailable("ping mongo", err)
	}

	r := &Repository{
		cli:  cli,
		coll: cli.Database(database).Collection(collection),
		now:  time.Now,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", database, "collection", collection)
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("key_unique"),
	})
	if err != nil {
		return fmt.Errorf("create unique key index: %w", err)
	}
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	return r.cli.Disconnect(ctx)
}

func (r *Repository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, storage.Unavailable("find periods", err)
	}
	var docs []periodDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storage.Unavailable("decode periods", err)
	}
	periods := make([]core.Period, 0, len(docs))
	for _, d := range docs {
		periods = append(periods, d.toPeriod())
	}
	return periods, nil
}

func (r *Repository) GetPeriod(ctx context.Context, key string) (*core.Period, error) {
	var doc periodDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "key", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Unavailable("find period", err)
	}
	p := doc.toPeriod()
	return &p, nil
}

func (r *Repository) InsertPeriod(ctx context.Context, p core.Period) error {
	doc := newDocument(p, r.now().UTC())
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert period %s: %w", p.Key, core.ErrDuplicateKey)
		}
		return storage.Unavailable("insert period", err)
	}
	return nil
}

// UpdatePeriod compares against the stored document and writes only if the
// document still carries the revision that was compared. A lost race re-reads
// and compares again.
func (r *Repository) UpdatePeriod(ctx context.Context, p core.Period) (core.UpdateResult, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		var doc periodDocument
		err := r.coll.FindOne(ctx, bson.D{{Key: "key", Value: p.Key}}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return core.UpdateNotFound, nil
		}
		if err != nil {
			return core.UpdateNotFound, storage.Unavailable("find period", err)
		}
		if doc.toPeriod().Equal(p) {
			return core.UpdateUnchanged, nil
		}

		res, err := r.coll.UpdateOne(ctx, revisionFilter(p.Key, doc.Revision), updateDocument(p, r.now().UTC()))
		if err != nil {
			return core.UpdateNotFound, storage.Unavailable("update period", err)
		}
		if res.MatchedCount == 1 {
			return core.UpdateChanged, nil
		}
		slog.WarnContext(ctx, "Period changed during update, retrying",
			"period_key", p.Key,
			"attempt", attempt+1)
	}
	return core.UpdateNotFound, storage.Unavailable("update period", errConcurrentUpdate)
}

// revisionFilter matches the period only at the given revision. Revision 0
// stands for documents written before revisions existed.
func revisionFilter(key string, revision int64) bson.D {
	var rev any = revision
	if revision == 0 {
		rev = nil
	}
	return bson.D{
		{Key: "key", Value: key},
		{Key: "revision", Value: rev},
	}
}

func updateDocument(p core.Period, now time.Time) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "incomes", Value: p.Incomes.Clone()},
			{Key: "expenses", Value: p.Expenses.Clone()},
			{Key: "comment", Value: p.Comment},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$inc", Value: bson.D{{Key: "revision", Value: int64(1)}}},
	}
}

func newDocument(p core.Period, now time.Time) periodDocument {
	return periodDocument{
		Key:       p.Key,
		Incomes:   p.Incomes.Clone(),
		Expenses:  p.Expenses.Clone(),
		Comment:   p.Comment,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (d periodDocument) toPeriod() core.Period {
	return core.Period{
		Key:      d.Key,
		Incomes:  d.Incomes.Clone(),
		Expenses: d.Expenses.Clone(),
		Comment:  d.Comment,
	}
}
