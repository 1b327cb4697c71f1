package entity

import "time"

type Category struct {
	ID        string    `db:"id"`
	NameEN    string    `db:"name_en"`
	NameAR    string    `db:"name_ar"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
}

type SubCategory struct {
	ID         string    `db:"id"`
	CategoryID string    `db:"category_id"`
	NameEN     string    `db:"name_en"`
	NameAR     string    `db:"name_ar"`
	Position   int       `db:"position"`
	CreatedAt  time.Time `db:"created_at"`
}

type MenuItem struct {
	ID            string    `db:"id"`
	SubCategoryID string    `db:"sub_category_id"`
	CategoryID    string    `db:"category_id"`
	NameEN        string    `db:"name_en"`
	NameAR        string    `db:"name_ar"`
	Price         float64   `db:"price"`
	Available     bool      `db:"available"`
	CreatedAt     time.Time `db:"created_at"`
}

func (i MenuItem) Name(lang Language) string {
	if lang == LanguageArabic && i.NameAR != "" {
		return i.NameAR
	}
	return i.NameEN
}

func (c Category) Name(lang Language) string {
	if lang == LanguageArabic && c.NameAR != "" {
		return c.NameAR
	}
	return c.NameEN
}

func (s SubCategory) Name(lang Language) string {
	if lang == LanguageArabic && s.NameAR != "" {
		return s.NameAR
	}
	return s.NameEN
}

// Menu is an immutable snapshot of the menu tree used by the deterministic
// matchers. The repository loads it once and the service refreshes it on a
// TTL.
type Menu struct {
	Categories    []Category
	SubCategories []SubCategory
	Items         []MenuItem
	LoadedAt      time.Time
}

func (m *Menu) CategoryByID(id string) (Category, bool) {
	for _, c := range m.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func (m *Menu) SubCategoryByID(id string) (SubCategory, bool) {
	for _, s := range m.SubCategories {
		if s.ID == id {
			return s, true
		}
	}
	return SubCategory{}, false
}

func (m *Menu) ItemByID(id string) (MenuItem, bool) {
	for _, it := range m.Items {
		if it.ID == id {
			return it, true
		}
	}
	return MenuItem{}, false
}

func (m *Menu) SubCategoriesOf(categoryID string) []SubCategory {
	var out []SubCategory
	for _, s := range m.SubCategories {
		if s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	return out
}

// ItemsOf returns the available items scoped to a subcategory, or to a main
// category when subCategoryID is empty, or the whole menu when both ids are
// empty.
func (m *Menu) ItemsOf(categoryID, subCategoryID string) []MenuItem {
	var out []MenuItem
	for _, it := range m.Items {
		if !it.Available {
			continue
		}
		if subCategoryID != "" && it.SubCategoryID != subCategoryID {
			continue
		}
		if subCategoryID == "" && categoryID != "" && it.CategoryID != categoryID {
			continue
		}
		out = append(out, it)
	}
	return out
}
