package orderRepository

import (
	"QahwaBot/internal/api/order"
	"QahwaBot/internal/entity"
	contextPkg "QahwaBot/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type OrderDB struct {
	ID          sql.NullString `db:"id"`
	PhoneNumber sql.NullString `db:"phone_number"`
	ServiceType sql.NullString `db:"service_type"`
	Location    sql.NullString `db:"location"`
	Status      sql.NullString `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type OrderLineDB struct {
	OrderID   sql.NullString  `db:"order_id"`
	ItemID    sql.NullString  `db:"item_id"`
	ItemName  sql.NullString  `db:"item_name"`
	Quantity  int             `db:"quantity"`
	UnitPrice sql.NullFloat64 `db:"unit_price"`
	Position  int             `db:"position"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r *ordersRepository) GetOpenOrder(ctx context.Context, phoneNumber string) (entity.Order, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row OrderDB

	query, args, err := sqlx.Named(queryGetOpenOrder, map[string]interface{}{
		"phone_number": phoneNumber,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetOpenOrder named query preparation err")
		return entity.Order{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Order{}, order.ErrOrderNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when getting open order")
		return entity.Order{}, err
	}

	result := entity.Order{
		ID:          row.ID.String,
		PhoneNumber: row.PhoneNumber.String,
		ServiceType: entity.ServiceType(row.ServiceType.String),
		Location:    row.Location.String,
		Status:      entity.OrderStatus(row.Status.String),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	lines, err := r.getLines(ctx, result.ID)
	if err != nil {
		return entity.Order{}, err
	}
	result.Lines = lines

	return result, nil
}

func (r *ordersRepository) getLines(ctx context.Context, orderID string) ([]entity.OrderLine, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []OrderLineDB

	query, args, err := sqlx.Named(queryGetOrderLines, map[string]interface{}{
		"order_id": orderID,
	})
	if err != nil {
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"order_id":   orderID,
			"error":      err.Error(),
		}).Error("Database error when getting order lines")
		return nil, err
	}

	lines := make([]entity.OrderLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, entity.OrderLine{
			OrderID:   row.OrderID.String,
			ItemID:    row.ItemID.String,
			ItemName:  row.ItemName.String,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice.Float64,
			Position:  row.Position,
			CreatedAt: row.CreatedAt,
		})
	}
	return lines, nil
}

func (r *ordersRepository) CreateOrder(ctx context.Context, o entity.Order) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"id":           o.ID,
		"phone_number": o.PhoneNumber,
		"service_type": string(o.ServiceType),
		"location":     o.Location,
		"status":       string(o.Status),
		"created_at":   o.CreatedAt,
		"updated_at":   o.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateOrder, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateOrder")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating order")
		return err
	}

	return nil
}

// UpsertLine inserts a cart line or, when a line for the same item already
// exists, replaces its quantity. The conflict target makes the single-line-
// per-item invariant hold even if the per-user lock were ever bypassed.
func (r *ordersRepository) UpsertLine(ctx context.Context, line entity.OrderLine) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"order_id":   line.OrderID,
		"item_id":    line.ItemID,
		"item_name":  line.ItemName,
		"quantity":   line.Quantity,
		"unit_price": line.UnitPrice,
		"created_at": line.CreatedAt,
	}

	query, args, err := sqlx.Named(queryUpsertLine, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for UpsertLine")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when upserting order line")
		return err
	}

	return nil
}

func (r *ordersRepository) DeleteLine(ctx context.Context, orderID, itemID string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryDeleteLine, map[string]interface{}{
		"order_id": orderID,
		"item_id":  itemID,
	})
	if err != nil {
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when deleting order line")
		return err
	}

	return nil
}

func (r *ordersRepository) DeleteLastLine(ctx context.Context, orderID string) (string, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryDeleteLastLine, map[string]interface{}{
		"order_id": orderID,
	})
	if err != nil {
		return "", err
	}
	query = r.q.Rebind(query)

	var itemID string
	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when deleting last order line")
		return "", err
	}

	return itemID, nil
}

func (r *ordersRepository) SetServiceAndLocation(ctx context.Context, orderID string, serviceType entity.ServiceType, location string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(querySetServiceAndLocation, map[string]interface{}{
		"id":           orderID,
		"service_type": string(serviceType),
		"location":     location,
		"updated_at":   time.Now(),
	})
	if err != nil {
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when setting service and location")
		return err
	}

	return nil
}

func (r *ordersRepository) SetStatus(ctx context.Context, orderID string, status entity.OrderStatus) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(querySetOrderStatus, map[string]interface{}{
		"id":         orderID,
		"status":     string(status),
		"updated_at": time.Now(),
	})
	if err != nil {
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when setting order status")
		return err
	}

	return nil
}

