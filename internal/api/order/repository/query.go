package orderRepository

const (
	queryUpsertSession = `
		INSERT INTO sessions (
			phone_number,
			display_name,
			current_step,
			language,
			main_category_id,
			sub_category_id,
			selected_item_id,
			order_mode,
			created_at,
			updated_at
		) VALUES (
			:phone_number,
			:display_name,
			:current_step,
			:language,
			:main_category_id,
			:sub_category_id,
			:selected_item_id,
			:order_mode,
			:created_at,
			:updated_at
		)
		ON CONFLICT (phone_number) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			current_step = EXCLUDED.current_step,
			language = EXCLUDED.language,
			main_category_id = EXCLUDED.main_category_id,
			sub_category_id = EXCLUDED.sub_category_id,
			selected_item_id = EXCLUDED.selected_item_id,
			order_mode = EXCLUDED.order_mode,
			updated_at = EXCLUDED.updated_at
	`

	queryGetSession = `
		SELECT
			phone_number,
			display_name,
			current_step,
			language,
			main_category_id,
			sub_category_id,
			selected_item_id,
			order_mode,
			created_at,
			updated_at
		FROM sessions
		WHERE phone_number = :phone_number
	`

	queryDeleteSession = `
		DELETE FROM sessions
		WHERE phone_number = :phone_number
	`

	queryGetOpenOrder = `
		SELECT
			id,
			phone_number,
			service_type,
			location,
			status,
			created_at,
			updated_at
		FROM orders
		WHERE phone_number = :phone_number AND status = 'open'
	`

	queryGetOrderLines = `
		SELECT
			order_id,
			item_id,
			item_name,
			quantity,
			unit_price,
			position,
			created_at
		FROM order_lines
		WHERE order_id = :order_id
		ORDER BY position ASC
	`

	queryCreateOrder = `
		INSERT INTO orders (
			id,
			phone_number,
			service_type,
			location,
			status,
			created_at,
			updated_at
		) VALUES (
			:id,
			:phone_number,
			:service_type,
			:location,
			:status,
			:created_at,
			:updated_at
		)
	`

	queryUpsertLine = `
		INSERT INTO order_lines (
			order_id,
			item_id,
			item_name,
			quantity,
			unit_price,
			position,
			created_at
		) VALUES (
			:order_id,
			:item_id,
			:item_name,
			:quantity,
			:unit_price,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM order_lines WHERE order_id = :order_id),
			:created_at
		)
		ON CONFLICT (order_id, item_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price
	`

	queryDeleteLine = `
		DELETE FROM order_lines
		WHERE order_id = :order_id AND item_id = :item_id
	`

	queryDeleteLastLine = `
		DELETE FROM order_lines
		WHERE order_id = :order_id
		  AND position = (SELECT MAX(position) FROM order_lines WHERE order_id = :order_id)
		RETURNING item_id
	`

	querySetServiceAndLocation = `
		UPDATE orders
		SET
			service_type = :service_type,
			location = :location,
			updated_at = :updated_at
		WHERE id = :id
	`

	querySetOrderStatus = `
		UPDATE orders
		SET
			status = :status,
			updated_at = :updated_at
		WHERE id = :id
	`

	queryGetCategories = `
		SELECT
			id,
			name_en,
			name_ar,
			position,
			created_at
		FROM menu_categories
		ORDER BY position ASC
	`

	queryGetSubCategories = `
		SELECT
			id,
			category_id,
			name_en,
			name_ar,
			position,
			created_at
		FROM menu_sub_categories
		ORDER BY position ASC
	`

	queryGetMenuItems = `
		SELECT
			id,
			sub_category_id,
			category_id,
			name_en,
			name_ar,
			price,
			available,
			created_at
		FROM menu_items
		ORDER BY name_en ASC
	`
)
