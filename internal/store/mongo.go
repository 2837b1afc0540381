package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoDB error code for malformed query documents (BadValue).
const mongoBadValue = 2

// MongoStore implements Store on a MongoDB database. Identifiers are
// ObjectID hex strings stored as plain strings in _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to MongoDB and verifies the connection with a ping.
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(database),
	}, nil
}

// CreateIndexes creates the unique email index and the assignment lookup index.
func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	_, err := s.db.Collection(CollectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = s.db.Collection(CollectionTasks).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "assignedUser", Value: 1}, {Key: "completed", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks index: %w", err)
	}

	return nil
}

// Drop removes both collections. Used by integration tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	for _, name := range []string{CollectionUsers, CollectionTasks} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoStore) collection(name string) (*mongo.Collection, schema, error) {
	sch, err := schemaFor(name)
	if err != nil {
		return nil, nil, err
	}
	return s.db.Collection(name), sch, nil
}

func (s *MongoStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	coll, _, err := s.collection(collection)
	if err != nil {
		return "", err
	}

	id := bson.NewObjectID().Hex()
	record := make(bson.M, len(doc)+1)
	for k, v := range doc {
		record[k] = v
	}
	record[IDField] = id

	if _, err := coll.InsertOne(ctx, record); err != nil {
		return "", mongoError(err)
	}
	return id, nil
}

func (s *MongoStore) FindByID(ctx context.Context, collection, id string, projection Projection) (Document, error) {
	coll, _, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if err := validObjectID(id); err != nil {
		return nil, err
	}

	opts := options.FindOne()
	if len(projection) > 0 {
		opts.SetProjection(projectionDocument(projection))
	}

	var raw bson.M
	if err := coll.FindOne(ctx, bson.M{IDField: id}, opts).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mongoError(err)
	}
	return normalizeDocument(raw), nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	coll, sch, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	filter, err := castFilter(sch, q.Filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if len(q.Sort) > 0 {
		sortDoc := make(bson.D, 0, len(q.Sort))
		for _, sf := range q.Sort {
			dir := 1
			if sf.Desc {
				dir = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: sf.Field, Value: dir})
		}
		opts.SetSort(sortDoc)
	}
	if len(q.Projection) > 0 {
		opts.SetProjection(projectionDocument(q.Projection))
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := coll.Find(ctx, bson.M(filter), opts)
	if err != nil {
		return nil, mongoError(err)
	}

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, mongoError(err)
	}

	docs := make([]Document, len(raws))
	for i, raw := range raws {
		docs[i] = normalizeDocument(raw)
	}
	return docs, nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	coll, sch, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	cast, err := castFilter(sch, filter)
	if err != nil {
		return 0, err
	}

	n, err := coll.CountDocuments(ctx, bson.M(cast))
	if err != nil {
		return 0, mongoError(err)
	}
	return n, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, patch Document) error {
	coll, _, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := validObjectID(id); err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, bson.M{IDField: id}, bson.M{"$set": setDocument(patch)})
	if err != nil {
		return mongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateMany(ctx context.Context, collection string, filter Filter, patch Document) (int64, error) {
	coll, sch, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	cast, err := castFilter(sch, filter)
	if err != nil {
		return 0, err
	}

	res, err := coll.UpdateMany(ctx, bson.M(cast), bson.M{"$set": setDocument(patch)})
	if err != nil {
		return 0, mongoError(err)
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) AddToSet(ctx context.Context, collection, id, field, value string) error {
	return s.updateList(ctx, collection, id, field, bson.M{"$addToSet": bson.M{field: value}})
}

func (s *MongoStore) Pull(ctx context.Context, collection, id, field, value string) error {
	return s.updateList(ctx, collection, id, field, bson.M{"$pull": bson.M{field: value}})
}

func (s *MongoStore) updateList(ctx context.Context, collection, id, field string, update bson.M) error {
	coll, _, err := s.collection(collection)
	if err != nil {
		return err
	}
	if _, err := listField(collection, field); err != nil {
		return err
	}
	if err := validObjectID(id); err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, bson.M{IDField: id}, update)
	if err != nil {
		return mongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	coll, _, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := validObjectID(id); err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{IDField: id})
	if err != nil {
		return mongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func validObjectID(id string) error {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func mongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(mongoBadValue) {
		return fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
	}
	return err
}

// setDocument drops _id from a patch; the identifier is immutable.
func setDocument(patch Document) bson.M {
	set := make(bson.M, len(patch))
	for k, v := range patch {
		if k == IDField {
			continue
		}
		set[k] = v
	}
	return set
}

func projectionDocument(p Projection) bson.D {
	fields := make([]string, 0, len(p))
	for f := range p {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	doc := make(bson.D, 0, len(fields))
	for _, f := range fields {
		v := 0
		if p[f] {
			v = 1
		}
		doc = append(doc, bson.E{Key: f, Value: v})
	}
	return doc
}

func normalizeDocument(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.DateTime:
		return val.Time().UTC()
	case time.Time:
		return val.UTC()
	case bson.ObjectID:
		return val.Hex()
	case int32:
		return int64(val)
	default:
		return v
	}
}
