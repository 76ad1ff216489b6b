package solution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/observability"
)

// Platform database layout.
const (
	DefaultDatabase = "platform_db"

	CollectionSolutions  = "clients_solutions"
	CollectionIndustry   = "industry"
	CollectionTechnology = "technologies"
	CollectionClients    = "clients"
	CollectionUsers      = "users"
)

// DefaultMongoTimeout bounds server selection and the initial ping.
const DefaultMongoTimeout = 10 * time.Second

// MongoOptions configures a MongoStore.
type MongoOptions struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MongoStore reads solutions from the platform database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and pings the server.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if err := apperrors.ValidateMongoURI(opts.URI); err != nil {
		return nil, err
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultMongoTimeout
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(opts.Timeout))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "connect to mongodb")
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "ping mongodb")
	}
	return &MongoStore{client: client, db: client.Database(opts.Database)}, nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, id string) (sol *Solution, err error) {
	done := observability.TrackQuery(ctx, "mongo", "get")
	defer func() { done(err) }()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var out Solution
	err = s.db.Collection(CollectionSolutions).FindOne(ctx, bson.M{"_id": oid}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errSolutionNotFound(id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "load solution %s", id)
	}
	return &out, nil
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context) (sols []*Solution, err error) {
	done := observability.TrackQuery(ctx, "mongo", "list")
	defer func() { done(err) }()

	cur, err := s.db.Collection(CollectionSolutions).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "list solutions")
	}
	if err := cur.All(ctx, &sols); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "decode solutions")
	}
	return sols, nil
}

// Entity implements Store. Users are looked up in the clients collection
// first and in users second.
func (s *MongoStore) Entity(ctx context.Context, kind EntityKind, id string) (e Entity, err error) {
	done := observability.TrackQuery(ctx, "mongo", "entity")
	defer func() { done(err) }()

	oid, err := objectID(id)
	if err != nil {
		return Entity{}, err
	}

	var collections []string
	switch kind {
	case KindIndustry:
		collections = []string{CollectionIndustry}
	case KindTechnology:
		collections = []string{CollectionTechnology}
	case KindUser:
		collections = []string{CollectionClients, CollectionUsers}
	default:
		return Entity{}, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown entity kind %q", kind)
	}

	for _, name := range collections {
		err := s.db.Collection(name).FindOne(ctx, bson.M{"_id": oid}).Decode(&e)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return Entity{}, apperrors.Wrap(apperrors.ErrCodeStore, err, "load %s %s", kind, id)
		}
		e.Kind = kind
		if kind == KindUser {
			e.Source = name
		}
		return e, nil
	}
	return Entity{}, errNotFound(kind, id)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

// objectID parses a hex id, reporting malformed ids as INVALID_ID.
func objectID(id string) (primitive.ObjectID, error) {
	if err := apperrors.ValidateObjectID(id); err != nil {
		return primitive.NilObjectID, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.Wrap(apperrors.ErrCodeInvalidID, err, "invalid id %q", id)
	}
	return oid, nil
}

// newObjectID returns a fresh hex ObjectID for records created locally.
func newObjectID() string { return primitive.NewObjectID().Hex() }

var _ Store = (*MongoStore)(nil)
