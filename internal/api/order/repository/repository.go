package orderRepository

import (
	"QahwaBot/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		var err error
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Sessions: &sessionsRepository{q: sqlExecutor, log: r.log},
		Orders:   &ordersRepository{q: sqlExecutor, log: r.log},
		Menu:     &menuRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Sessions interface {
		UpsertSession(ctx context.Context, session entity.Session) error
		GetSession(ctx context.Context, phoneNumber string) (entity.Session, error)
		DeleteSession(ctx context.Context, phoneNumber string) error
	}

	Orders interface {
		GetOpenOrder(ctx context.Context, phoneNumber string) (entity.Order, error)
		CreateOrder(ctx context.Context, order entity.Order) error
		UpsertLine(ctx context.Context, line entity.OrderLine) error
		DeleteLine(ctx context.Context, orderID, itemID string) error
		DeleteLastLine(ctx context.Context, orderID string) (string, error)
		SetServiceAndLocation(ctx context.Context, orderID string, serviceType entity.ServiceType, location string) error
		SetStatus(ctx context.Context, orderID string, status entity.OrderStatus) error
	}

	Menu interface {
		LoadMenu(ctx context.Context) (entity.Menu, error)
	}

	Commit   func() error
	Rollback func() error
}

type sessionsRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type ordersRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type menuRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
