package service

import (
	"context"
	"sync"
	"time"

	"github.com/example/shopcore/pkg/models"
	"github.com/example/shopcore/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memOrderStore mirrors OrderRepository semantics in memory.
type memOrderStore struct {
	mu       sync.Mutex
	nextID   int64
	orders   map[int64]*models.Order
	pingErr  error
	statusFn func(orderID int64) (string, error)
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[int64]*models.Order)}
}

func (m *memOrderStore) Ping(ctx context.Context) (int, error) {
	if m.pingErr != nil {
		return 0, m.pingErr
	}
	return 1, nil
}

func (m *memOrderStore) CreateOrder(ctx context.Context, userID int64, items []models.NewOrderItem) (*models.Order, error) {
	if userID == 0 || len(items) == 0 {
		return nil, repository.ErrMissingOrderFields
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	o := &models.Order{UserID: userID, Status: models.OrderStatusPending, CreatedAt: time.Now()}
	total := decimal.Zero
	for _, it := range items {
		if !it.Valid() {
			return nil, repository.ErrInvalidItem
		}
		row := models.OrderItem{ProductID: *it.ProductID, Quantity: *it.Quantity, Price: *it.Price}
		total = total.Add(row.Subtotal())
		o.Items = append(o.Items, row)
	}
	m.nextID++
	o.ID = m.nextID
	o.TotalAmount = total
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memOrderStore) PayOrder(ctx context.Context, orderID int64, amount decimal.Decimal, provider string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if o.Status == models.OrderStatusPaid {
		return nil, repository.ErrOrderAlreadyPaid
	}
	if provider == "" {
		provider = models.DefaultPaymentProvider
	}
	p := models.Payment{OrderID: orderID, Provider: provider, Amount: amount, Status: models.PaymentStatusSuccess, PaidAt: time.Now()}
	o.Payments = append(o.Payments, p)
	o.Status = models.OrderStatusPaid
	return &p, nil
}

func (m *memOrderStore) OrderStatus(ctx context.Context, orderID int64) (string, error) {
	if m.statusFn != nil {
		return m.statusFn(orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return "", repository.ErrOrderNotFound
	}
	return o.Status, nil
}

func (m *memOrderStore) SumPaidQuantity(ctx context.Context, productID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, o := range m.orders {
		if o.Status != models.OrderStatusPaid {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == productID {
				sum += int64(it.Quantity)
			}
		}
	}
	return sum, nil
}

func (m *memOrderStore) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

type memReviewStore struct {
	mu           sync.Mutex
	reviews      []*models.Review
	err          error
	topology     *models.Topology
	steppedDown  []int
	lastReadPref models.ReadPreference
	lastLimit    int64
}

func newMemReviewStore() *memReviewStore {
	return &memReviewStore{
		topology: &models.Topology{IsWritablePrimary: true, Primary: "mongo1:27017", Me: "mongo1:27017", Hosts: []string{"mongo1:27017", "mongo2:27017"}},
	}
}

func (m *memReviewStore) InsertReview(ctx context.Context, review *models.Review) (primitive.ObjectID, error) {
	if m.err != nil {
		return primitive.NilObjectID, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	review.ID = primitive.NewObjectID()
	m.reviews = append(m.reviews, review)
	return review.ID, nil
}

func (m *memReviewStore) AggregateProductReviews(ctx context.Context, productID int64, rp models.ReadPreference) (models.ReviewSummary, error) {
	if m.err != nil {
		return models.ReviewSummary{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReadPref = rp
	var n int64
	var sum float64
	for _, r := range m.reviews {
		if r.ProductID == productID {
			n++
			sum += r.Rating
		}
	}
	if n == 0 {
		return models.ReviewSummary{}, nil
	}
	avg := models.RoundRating(sum / float64(n))
	return models.ReviewSummary{Count: n, AvgRating: &avg}, nil
}

func (m *memReviewStore) ListProductReviews(ctx context.Context, productID int64, rp models.ReadPreference, limit int64) ([]*models.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []*models.Review
	for _, r := range m.reviews {
		if r.ProductID == productID && int64(len(out)) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReviewStore) Topology(ctx context.Context) (*models.Topology, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.topology, nil
}

func (m *memReviewStore) StepDown(ctx context.Context, seconds int) error {
	if m.err != nil {
		return m.err
	}
	m.steppedDown = append(m.steppedDown, seconds)
	return nil
}
