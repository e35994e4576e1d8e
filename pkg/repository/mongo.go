package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shopcore/pkg/config"
	"github.com/example/shopcore/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const defaultReviewCollection = "reviews"

// ReviewRepository is the document gateway for product reviews. Writes wait
// for a majority of replica set members; reads take a per-call read
// preference.
type ReviewRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewReviewRepository(cfg *config.MongoDBConfig) (*ReviewRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI).SetRetryWrites(true)
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return NewReviewRepositoryFromClient(client, cfg), nil
}

// NewReviewRepositoryFromClient wraps an already connected client.
func NewReviewRepositoryFromClient(client *mongo.Client, cfg *config.MongoDBConfig) *ReviewRepository {
	return &ReviewRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}
}

func (m *ReviewRepository) collectionName() string {
	if m.config.Collection == "" {
		return defaultReviewCollection
	}
	return m.config.Collection
}

func (m *ReviewRepository) reviews(rp models.ReadPreference) *mongo.Collection {
	opts := options.Collection().
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(mongoReadPref(rp))
	return m.database.Collection(m.collectionName(), opts)
}

func mongoReadPref(rp models.ReadPreference) *readpref.ReadPref {
	if rp == models.ReadSecondaryPreferred {
		return readpref.SecondaryPreferred()
	}
	return readpref.Primary()
}

// withSession runs fn inside a session that is ended on every return path.
func (m *ReviewRepository) withSession(ctx context.Context, fn func(mongo.SessionContext) error) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, fn)
}

func (m *ReviewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.reviews(models.ReadPrimary).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}},
		Options: options.Index().SetName("productId_1"),
	})
	if err != nil {
		return translateMongoError("create reviews index", err)
	}
	return nil
}

// InsertReview stores review once a majority of members acknowledge it and
// returns the generated id.
func (m *ReviewRepository) InsertReview(ctx context.Context, review *models.Review) (primitive.ObjectID, error) {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	err := m.withSession(ctx, func(sc mongo.SessionContext) error {
		_, err := m.reviews(models.ReadPrimary).InsertOne(sc, review)
		return err
	})
	if err != nil {
		return primitive.NilObjectID, translateMongoError("insert review", err)
	}

	return review.ID, nil
}

type ratingAggregate struct {
	Count     int64   `bson:"count"`
	AvgRating float64 `bson:"avgRating"`
}

// AggregateProductReviews returns the review count and mean rating for a
// product. AvgRating stays nil when there are no reviews.
func (m *ReviewRepository) AggregateProductReviews(ctx context.Context, productID int64, rp models.ReadPreference) (models.ReviewSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "productId", Value: productID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$productId"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	}

	var rows []ratingAggregate
	err := m.withSession(ctx, func(sc mongo.SessionContext) error {
		cursor, err := m.reviews(rp).Aggregate(sc, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(sc)
		return cursor.All(sc, &rows)
	})
	if err != nil {
		return models.ReviewSummary{}, translateMongoError("aggregate reviews", err)
	}

	if len(rows) == 0 || rows[0].Count == 0 {
		return models.ReviewSummary{}, nil
	}

	avg := models.RoundRating(rows[0].AvgRating)
	return models.ReviewSummary{Count: rows[0].Count, AvgRating: &avg}, nil
}

// ListProductReviews returns at most limit reviews of a product, newest first.
func (m *ReviewRepository) ListProductReviews(ctx context.Context, productID int64, rp models.ReadPreference, limit int64) ([]*models.Review, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	var reviews []*models.Review
	err := m.withSession(ctx, func(sc mongo.SessionContext) error {
		cursor, err := m.reviews(rp).Find(sc, bson.M{"productId": productID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(sc)
		return cursor.All(sc, &reviews)
	})
	if err != nil {
		return nil, translateMongoError("list reviews", err)
	}

	return reviews, nil
}

// Topology runs hello against the admin database.
func (m *ReviewRepository) Topology(ctx context.Context) (*models.Topology, error) {
	var topo models.Topology
	err := m.client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&topo)
	if err != nil {
		return nil, translateMongoError("hello", err)
	}
	return &topo, nil
}

// StepDown asks the current primary to give up its role for the given
// number of seconds. Failover testing only.
func (m *ReviewRepository) StepDown(ctx context.Context, seconds int) error {
	err := m.client.Database("admin").RunCommand(ctx, bson.D{{Key: "replSetStepDown", Value: seconds}}).Err()
	if err != nil {
		return translateMongoError("replSetStepDown", err)
	}
	return nil
}

func (m *ReviewRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
