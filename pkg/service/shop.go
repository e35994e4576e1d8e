package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shopcore/pkg/models"
	"github.com/example/shopcore/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultStepDownSeconds = 10
	DefaultReviewLimit     = 50
)

// OrderStore is the relational side: orders, items and payments.
type OrderStore interface {
	Ping(ctx context.Context) (int, error)
	CreateOrder(ctx context.Context, userID int64, items []models.NewOrderItem) (*models.Order, error)
	PayOrder(ctx context.Context, orderID int64, amount decimal.Decimal, provider string) (*models.Payment, error)
	OrderStatus(ctx context.Context, orderID int64) (string, error)
	SumPaidQuantity(ctx context.Context, productID int64) (int64, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
}

// ReviewStore is the document side: reviews and replica set administration.
type ReviewStore interface {
	InsertReview(ctx context.Context, review *models.Review) (primitive.ObjectID, error)
	AggregateProductReviews(ctx context.Context, productID int64, rp models.ReadPreference) (models.ReviewSummary, error)
	ListProductReviews(ctx context.Context, productID int64, rp models.ReadPreference, limit int64) ([]*models.Review, error)
	Topology(ctx context.Context) (*models.Topology, error)
	StepDown(ctx context.Context, seconds int) error
}

// ShopService sequences calls across the two stores. It holds no request
// state. There is no transaction spanning both stores: a relational commit
// is never undone because a later document write failed.
type ShopService struct {
	orders  OrderStore
	reviews ReviewStore
	logger  *zap.Logger
}

func NewShopService(orders OrderStore, reviews ReviewStore, logger *zap.Logger) *ShopService {
	return &ShopService{
		orders:  orders,
		reviews: reviews,
		logger:  logger,
	}
}

func (s *ShopService) CreateOrder(ctx context.Context, userID int64, items []models.NewOrderItem) (*models.Order, error) {
	return s.orders.CreateOrder(ctx, userID, items)
}

func (s *ShopService) PayOrder(ctx context.Context, orderID int64, amount *decimal.Decimal, provider string) (*models.Payment, error) {
	if amount == nil {
		return nil, repository.ErrMissingAmount
	}
	return s.orders.PayOrder(ctx, orderID, *amount, provider)
}

func (s *ShopService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

type ReviewInput struct {
	ProductID *int64
	Rating    *float64
	Comment   string
	OrderID   *int64
}

// CreateReview stores a review. When an order is referenced it must be PAID
// at the time of the check. The check and the insert hit different stores,
// so the order may change state in between; that window is accepted.
func (s *ShopService) CreateReview(ctx context.Context, in ReviewInput) (primitive.ObjectID, error) {
	if in.ProductID == nil || in.Rating == nil {
		return primitive.NilObjectID, repository.ErrMissingReviewFields
	}

	review := &models.Review{
		ProductID: *in.ProductID,
		Rating:    *in.Rating,
		Comment:   in.Comment,
	}

	if in.OrderID != nil && *in.OrderID != 0 {
		status, err := s.orders.OrderStatus(ctx, *in.OrderID)
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return primitive.NilObjectID, repository.ErrOrderNotPaid
		case err != nil:
			return primitive.NilObjectID, fmt.Errorf("check order %d: %w", *in.OrderID, err)
		case status != models.OrderStatusPaid:
			s.logger.Debug("Review rejected for unpaid order",
				zap.Int64("order_id", *in.OrderID),
				zap.String("status", status))
			return primitive.NilObjectID, repository.ErrOrderNotPaid
		}
		orderID := *in.OrderID
		review.OrderID = &orderID
	}

	return s.reviews.InsertReview(ctx, review)
}

// ProductSummary reads paid sales and review stats independently; the two
// numbers may reflect different points in time.
func (s *ShopService) ProductSummary(ctx context.Context, productID int64, rp models.ReadPreference) (*models.ProductSummary, error) {
	sold, err := s.orders.SumPaidQuantity(ctx, productID)
	if err != nil {
		return nil, err
	}

	stats, err := s.reviews.AggregateProductReviews(ctx, productID, rp)
	if err != nil {
		return nil, err
	}

	return &models.ProductSummary{
		ProductID:     productID,
		SoldPaid:      sold,
		Reviews:       stats,
		MongoReadFrom: rp.String(),
	}, nil
}

// ProductReviews lists reviews of a product; a non-positive limit falls back
// to DefaultReviewLimit.
func (s *ShopService) ProductReviews(ctx context.Context, productID int64, rp models.ReadPreference, limit int64) ([]*models.Review, error) {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	return s.reviews.ListProductReviews(ctx, productID, rp, limit)
}

type Health struct {
	MySQL map[string]int   `json:"mysql"`
	Mongo *models.Topology `json:"mongo"`
}

// Health probes MySQL then MongoDB and stops at the first failure, so an
// outage of one store hides the state of the other.
func (s *ShopService) Health(ctx context.Context) (*Health, error) {
	ok, err := s.orders.Ping(ctx)
	if err != nil {
		return nil, err
	}

	topo, err := s.reviews.Topology(ctx)
	if err != nil {
		return nil, err
	}

	return &Health{
		MySQL: map[string]int{"db_ok": ok},
		Mongo: topo,
	}, nil
}

// CheckMySQL and CheckMongo probe one store each.
func (s *ShopService) CheckMySQL(ctx context.Context) error {
	_, err := s.orders.Ping(ctx)
	return err
}

func (s *ShopService) CheckMongo(ctx context.Context) error {
	_, err := s.reviews.Topology(ctx)
	return err
}

// StepDown forces the document store primary to step down. A non-positive
// duration falls back to DefaultStepDownSeconds.
func (s *ShopService) StepDown(ctx context.Context, seconds int) (int, error) {
	if seconds <= 0 {
		seconds = DefaultStepDownSeconds
	}
	s.logger.Warn("Requesting primary step down", zap.Int("seconds", seconds))
	if err := s.reviews.StepDown(ctx, seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}
