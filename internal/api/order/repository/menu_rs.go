package orderRepository

import (
	"QahwaBot/internal/entity"
	contextPkg "QahwaBot/pkg/context"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

func (r *menuRepository) LoadMenu(ctx context.Context) (entity.Menu, error) {
	requestID := contextPkg.GetRequestID(ctx)

	var categories []entity.Category
	if err := r.q.SelectContext(ctx, &categories, r.q.Rebind(queryGetCategories)); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when loading menu categories")
		return entity.Menu{}, err
	}

	var subCategories []entity.SubCategory
	if err := r.q.SelectContext(ctx, &subCategories, r.q.Rebind(queryGetSubCategories)); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when loading menu subcategories")
		return entity.Menu{}, err
	}

	var items []entity.MenuItem
	if err := r.q.SelectContext(ctx, &items, r.q.Rebind(queryGetMenuItems)); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when loading menu items")
		return entity.Menu{}, err
	}

	return entity.Menu{
		Categories:    categories,
		SubCategories: subCategories,
		Items:         items,
		LoadedAt:      time.Now(),
	}, nil
}
