package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/shopcore/pkg/config"
	"github.com/example/shopcore/pkg/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository is the relational gateway for orders, order items and
// payments. Every operation runs in its own transaction.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(cfg *config.MySQLConfig) (*OrderRepository, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &OrderRepository{db: db}, nil
}

// NewOrderRepositoryFromDB wraps an already opened gorm handle.
func NewOrderRepositoryFromDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Payment{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Ping runs SELECT 1 and returns the db_ok column.
func (r *OrderRepository) Ping(ctx context.Context) (int, error) {
	var ok int
	if err := r.db.WithContext(ctx).Raw("SELECT 1 AS db_ok").Row().Scan(&ok); err != nil {
		return 0, translateMySQLError("ping", err)
	}
	return ok, nil
}

// CreateOrder inserts a PENDING order and its items and sets the order total
// to the sum of quantity*price. A missing field on any item rolls back the
// whole order.
func (r *OrderRepository) CreateOrder(ctx context.Context, userID int64, items []models.NewOrderItem) (*models.Order, error) {
	if userID == 0 || len(items) == 0 {
		return nil, ErrMissingOrderFields
	}

	var order *models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o := &models.Order{
			UserID:      userID,
			TotalAmount: decimal.Zero,
			Status:      models.OrderStatusPending,
		}
		if err := tx.Create(o).Error; err != nil {
			return translateMySQLError("insert order", err)
		}

		total := decimal.Zero
		rows := make([]models.OrderItem, 0, len(items))
		for i, it := range items {
			if !it.Valid() {
				return fmt.Errorf("item %d: %w", i, ErrInvalidItem)
			}
			row := models.OrderItem{
				OrderID:   o.ID,
				ProductID: *it.ProductID,
				Quantity:  *it.Quantity,
				Price:     *it.Price,
			}
			if err := tx.Create(&row).Error; err != nil {
				return translateMySQLError("insert order item", err)
			}
			total = total.Add(row.Subtotal())
			rows = append(rows, row)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("total_amount", total).Error; err != nil {
			return translateMySQLError("update order total", err)
		}

		o.TotalAmount = total
		o.Items = rows
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// PayOrder locks the order row, records a SUCCESS payment and marks the
// order PAID. Concurrent calls for one order serialize on the row lock; the
// loser sees PAID and gets ErrOrderAlreadyPaid. amount is stored as given.
func (r *OrderRepository) PayOrder(ctx context.Context, orderID int64, amount decimal.Decimal, provider string) (*models.Payment, error) {
	if provider == "" {
		provider = models.DefaultPaymentProvider
	}

	var payment *models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			Take(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return translateMySQLError("lock order", err)
		}

		if order.Status == models.OrderStatusPaid {
			return ErrOrderAlreadyPaid
		}

		p := &models.Payment{
			OrderID:  orderID,
			Provider: provider,
			Amount:   amount,
			Status:   models.PaymentStatusSuccess,
			PaidAt:   time.Now().UTC(),
		}
		if err := tx.Create(p).Error; err != nil {
			return translateMySQLError("insert payment", err)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("status", models.OrderStatusPaid).Error; err != nil {
			return translateMySQLError("update order status", err)
		}

		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// OrderStatus returns the current status of an order.
func (r *OrderRepository) OrderStatus(ctx context.Context, orderID int64) (string, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Select("status").Where("id = ?", orderID).Take(&order).Error
	}, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOrderNotFound
		}
		return "", translateMySQLError("get order status", err)
	}
	return order.Status, nil
}

// SumPaidQuantity totals item quantities of a product over PAID orders.
func (r *OrderRepository) SumPaidQuantity(ctx context.Context, productID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table("order_items AS oi").
			Select("COALESCE(SUM(oi.quantity), 0)").
			Joins("JOIN orders o ON o.id = oi.order_id").
			Where("oi.product_id = ? AND o.status = ?", productID, models.OrderStatusPaid).
			Row().Scan(&total)
	}, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return 0, translateMySQLError("sum paid quantity", err)
	}
	return total, nil
}

// GetOrder loads an order with its items and payments.
func (r *OrderRepository) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Preload("Items").Preload("Payments").Where("id = ?", orderID).Take(&order).Error
	}, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, translateMySQLError("get order", err)
	}
	return &order, nil
}

func (r *OrderRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
