package storage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ctrl-Creeper/HippoRAG/embed"
)

const mongoOpTimeout = 5 * time.Second

func mongoCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), mongoOpTimeout)
}

// nextSeq hands out int64 ids from a counters collection so mongo rows
// carry the same id shape as the SQL drivers.
func nextSeq(db *mongo.Database, name string) (int64, error) {
	ctx, cancel := mongoCtx()
	defer cancel()

	res := db.Collection("hippo_counters").FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

type mongoFactDoc struct {
	ID          int64     `bson:"id"`
	UUID        string    `bson:"uuid"`
	Namespace   string    `bson:"namespace"`
	Subject     string    `bson:"subject"`
	Predicate   string    `bson:"predicate"`
	Object      string    `bson:"object"`
	Uncertain   bool      `bson:"uncertain"`
	Embedding   []byte    `bson:"embedding,omitempty"`
	Activation  float64   `bson:"activation"`
	AccessCount int64     `bson:"access_count"`
	LastAccess  time.Time `bson:"date_last_access"`
	Uniq        string    `bson:"uniq"`
	CreatedAt   time.Time `bson:"date_created"`
	UpdatedAt   time.Time `bson:"date_updated,omitempty"`
}

func (d mongoFactDoc) record() FactRecord {
	return FactRecord{
		ID:          d.ID,
		UUID:        d.UUID,
		Namespace:   d.Namespace,
		Subject:     d.Subject,
		Predicate:   d.Predicate,
		Object:      d.Object,
		Uncertain:   d.Uncertain,
		Embedding:   d.Embedding,
		Activation:  d.Activation,
		AccessCount: d.AccessCount,
		LastAccess:  d.LastAccess,
		CreatedAt:   d.CreatedAt,
	}
}

type mongoFactRepo struct {
	db *mongo.Database
}

func (r *mongoFactRepo) coll() *mongo.Collection { return r.db.Collection("hippo_fact") }

func (r *mongoFactRepo) Upsert(namespace string, f FactUpsert) (int64, error) {
	ctx, cancel := mongoCtx()
	defer cancel()

	now := time.Now()
	filter := bson.M{"namespace": namespace, "uniq": f.Uniq}

	// Reinforce if the fact already exists
	res := r.coll().FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$inc": bson.M{"access_count": int64(1)}, "$set": bson.M{"date_last_access": now, "date_updated": now}},
	)
	var existing mongoFactDoc
	if err := res.Decode(&existing); err == nil {
		return existing.ID, nil
	} else if err != mongo.ErrNoDocuments {
		return 0, err
	}

	seq, err := nextSeq(r.db, "hippo_fact")
	if err != nil {
		return 0, err
	}

	doc := mongoFactDoc{
		ID:          seq,
		UUID:        uuid.New().String(),
		Namespace:   namespace,
		Subject:     f.Subject,
		Predicate:   f.Predicate,
		Object:      f.Object,
		Uncertain:   f.Uncertain,
		Embedding:   f.Embedding,
		Activation:  f.Activation,
		AccessCount: 0,
		LastAccess:  now,
		Uniq:        f.Uniq,
		CreatedAt:   now,
	}
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		// Unique index race: fall back to the winning row.
		if mongo.IsDuplicateKeyError(err) {
			var winner mongoFactDoc
			if ferr := r.coll().FindOne(ctx, filter).Decode(&winner); ferr == nil {
				return winner.ID, nil
			}
		}
		return 0, err
	}
	return seq, nil
}

func (r *mongoFactRepo) List(namespace string) ([]FactRecord, error) {
	ctx, cancel := mongoCtx()
	defer cancel()

	cur, err := r.coll().Find(ctx, bson.M{"namespace": namespace}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []FactRecord
	for cur.Next(ctx) {
		var doc mongoFactDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.record())
	}
	return out, cur.Err()
}

func (r *mongoFactRepo) Delete(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := mongoCtx()
	defer cancel()

	res, err := r.coll().DeleteMany(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *mongoFactRepo) UpdateObject(id int64, object string, uncertain bool, uniq string) error {
	ctx, cancel := mongoCtx()
	defer cancel()

	_, err := r.coll().UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"object": object, "uncertain": uncertain, "uniq": uniq, "date_updated": time.Now()}},
	)
	return err
}

func (r *mongoFactRepo) UpdateActivation(id int64, activation float64) error {
	ctx, cancel := mongoCtx()
	defer cancel()

	_, err := r.coll().UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"activation": activation, "date_updated": time.Now()}},
	)
	return err
}

func (r *mongoFactRepo) RecordAccess(id int64) error {
	ctx, cancel := mongoCtx()
	defer cancel()

	now := time.Now()
	_, err := r.coll().UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$inc": bson.M{"access_count": int64(1)}, "$set": bson.M{"date_last_access": now, "date_updated": now}},
	)
	return err
}

func (r *mongoFactRepo) SearchByEmbedding(namespace string, queryEmbedding []float32, limit, scanLimit int) ([]FactSearchResult, error) {
	ctx, cancel := mongoCtx()
	defer cancel()

	cur, err := r.coll().Find(ctx, bson.M{"namespace": namespace}, options.Find().SetLimit(int64(scanLimit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []FactSearchResult
	for cur.Next(ctx) {
		var doc mongoFactDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		score := embed.CosineSimilarity(queryEmbedding, embed.DecodeVector(doc.Embedding))
		results = append(results, FactSearchResult{Fact: doc.record(), Score: score})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Fact.LastAccess.After(results[j].Fact.LastAccess)
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

type mongoAccessRepo struct {
	db *mongo.Database
}

func (r *mongoAccessRepo) coll() *mongo.Collection { return r.db.Collection("hippo_access_event") }

func (r *mongoAccessRepo) Append(factID int64, query string, similarity float64) error {
	ctx, cancel := mongoCtx()
	defer cancel()

	_, err := r.coll().InsertOne(ctx, bson.M{
		"fact_id":      factID,
		"query":        query,
		"similarity":   similarity,
		"date_created": time.Now(),
	})
	return err
}

func (r *mongoAccessRepo) CountRelevant(factID int64, minSimilarity float64) (int64, error) {
	ctx, cancel := mongoCtx()
	defer cancel()

	return r.coll().CountDocuments(ctx, bson.M{
		"fact_id":    factID,
		"similarity": bson.M{"$gte": minSimilarity},
	})
}

func (r *mongoAccessRepo) DeleteForFacts(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := mongoCtx()
	defer cancel()

	_, err := r.coll().DeleteMany(ctx, bson.M{"fact_id": bson.M{"$in": ids}})
	return err
}

type mongoAuditRepo struct {
	db *mongo.Database
}

func (r *mongoAuditRepo) coll() *mongo.Collection { return r.db.Collection("hippo_conflict_audit") }

func (r *mongoAuditRepo) Append(rec AuditRecord) error {
	ctx, cancel := mongoCtx()
	defer cancel()

	if rec.UUID == "" {
		rec.UUID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.coll().InsertOne(ctx, bson.M{
		"uuid":             rec.UUID,
		"namespace":        rec.Namespace,
		"subject":          rec.Subject,
		"predicate":        rec.Predicate,
		"old_object":       rec.OldObject,
		"new_object":       rec.NewObject,
		"old_access_count": rec.OldAccessCount,
		"new_access_count": rec.NewAccessCount,
		"strategy":         rec.Strategy,
		"result":           rec.Result,
		"notes":            rec.Notes,
		"date_created":     rec.CreatedAt,
	})
	return err
}

func (r *mongoAuditRepo) List(namespace string) ([]AuditRecord, error) {
	ctx, cancel := mongoCtx()
	defer cancel()

	cur, err := r.coll().Find(ctx, bson.M{"namespace": namespace}, options.Find().SetSort(bson.D{{Key: "date_created", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []AuditRecord
	for cur.Next(ctx) {
		var doc struct {
			UUID           string    `bson:"uuid"`
			Namespace      string    `bson:"namespace"`
			Subject        string    `bson:"subject"`
			Predicate      string    `bson:"predicate"`
			OldObject      string    `bson:"old_object"`
			NewObject      string    `bson:"new_object"`
			OldAccessCount int64     `bson:"old_access_count"`
			NewAccessCount int64     `bson:"new_access_count"`
			Strategy       string    `bson:"strategy"`
			Result         string    `bson:"result"`
			Notes          string    `bson:"notes"`
			CreatedAt      time.Time `bson:"date_created"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, AuditRecord{
			UUID:           doc.UUID,
			Namespace:      doc.Namespace,
			Subject:        doc.Subject,
			Predicate:      doc.Predicate,
			OldObject:      doc.OldObject,
			NewObject:      doc.NewObject,
			OldAccessCount: doc.OldAccessCount,
			NewAccessCount: doc.NewAccessCount,
			Strategy:       doc.Strategy,
			Result:         doc.Result,
			Notes:          doc.Notes,
			CreatedAt:      doc.CreatedAt,
		})
	}
	return out, cur.Err()
}

func (r *mongoAuditRepo) CountByStrategy(namespace string) (map[string]int64, error) {
	ctx, cancel := mongoCtx()
	defer cancel()

	cur, err := r.coll().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"namespace": namespace}}},
		{{Key: "$group", Value: bson.M{"_id": "$strategy", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var doc struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.ID] = doc.Count
	}
	return out, cur.Err()
}

// Mongo driver repos
type mongoRepos struct {
	fact   FactRepo
	access AccessRepo
	audit  AuditRepo
}

func (d *MongoDriver) Fact() FactRepo {
	if d.repos == nil {
		d.repos = &mongoRepos{
			fact:   &mongoFactRepo{db: d.db()},
			access: &mongoAccessRepo{db: d.db()},
			audit:  &mongoAuditRepo{db: d.db()},
		}
	}
	return d.repos.fact
}

func (d *MongoDriver) Access() AccessRepo {
	if d.repos == nil {
		d.Fact()
	}
	return d.repos.access
}

func (d *MongoDriver) Audit() AuditRepo {
	if d.repos == nil {
		d.Fact()
	}
	return d.repos.audit
}
