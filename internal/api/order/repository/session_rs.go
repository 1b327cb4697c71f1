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

type SessionDB struct {
	PhoneNumber    sql.NullString `db:"phone_number"`
	DisplayName    sql.NullString `db:"display_name"`
	CurrentStep    sql.NullString `db:"current_step"`
	Language       sql.NullString `db:"language"`
	MainCategoryID sql.NullString `db:"main_category_id"`
	SubCategoryID  sql.NullString `db:"sub_category_id"`
	SelectedItemID sql.NullString `db:"selected_item_id"`
	OrderMode      sql.NullString `db:"order_mode"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r *sessionsRepository) UpsertSession(ctx context.Context, session entity.Session) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"phone_number":     session.PhoneNumber,
		"display_name":     session.DisplayName,
		"current_step":     string(session.CurrentStep),
		"language":         string(session.Language),
		"main_category_id": session.MainCategoryID,
		"sub_category_id":  session.SubCategoryID,
		"selected_item_id": session.SelectedItemID,
		"order_mode":       string(session.OrderMode),
		"created_at":       session.CreatedAt,
		"updated_at":       session.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryUpsertSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for UpsertSession")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when upserting session")
		return err
	}

	return nil
}

func (r *sessionsRepository) GetSession(ctx context.Context, phoneNumber string) (entity.Session, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row SessionDB

	argsKV := map[string]interface{}{
		"phone_number": phoneNumber,
	}

	query, args, err := sqlx.Named(queryGetSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSession named query preparation err")
		return entity.Session{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Session{}, order.ErrSessionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when getting session")
		return entity.Session{}, err
	}

	return entity.Session{
		PhoneNumber:    row.PhoneNumber.String,
		DisplayName:    row.DisplayName.String,
		CurrentStep:    entity.Step(row.CurrentStep.String),
		Language:       entity.Language(row.Language.String),
		MainCategoryID: row.MainCategoryID.String,
		SubCategoryID:  row.SubCategoryID.String,
		SelectedItemID: row.SelectedItemID.String,
		OrderMode:      entity.OrderMode(row.OrderMode.String),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (r *sessionsRepository) DeleteSession(ctx context.Context, phoneNumber string) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"phone_number": phoneNumber,
	}

	query, args, err := sqlx.Named(queryDeleteSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for DeleteSession")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when deleting session")
		return err
	}

	return nil
}
