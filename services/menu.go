package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"terracafe/db"
	"terracafe/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const drinkColumns = `id, name, price, glyph, description, category, available, created_at, updated_at`

func scanDrink(row pgx.Row) (*models.Drink, error) {
	var d models.Drink
	if err := row.Scan(&d.ID, &d.Name, &d.Price, &d.Glyph, &d.Description, &d.Category, &d.Available, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDrinks returns the menu. Unavailable drinks are only included when
// includeUnavailable is set (staff view).
func ListDrinks(ctx context.Context, includeUnavailable bool) ([]models.Drink, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+drinkColumns+` FROM drinks
		WHERE available OR $1
		ORDER BY id`,
		includeUnavailable,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drinks := []models.Drink{}
	for rows.Next() {
		d, err := scanDrink(rows)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, *d)
	}
	return drinks, rows.Err()
}

func GetDrink(ctx context.Context, id int64) (*models.Drink, error) {
	d, err := scanDrink(db.Pool.QueryRow(ctx, `SELECT `+drinkColumns+` FROM drinks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("drink %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

// DrinkInput carries the editable fields of a drink.
type DrinkInput struct {
	Name        string
	Price       decimal.Decimal
	Glyph       string
	Description string
	Category    string
	Available   bool
}

func (in *DrinkInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("name is required")
	}
	if in.Price.IsNegative() {
		return invalid("price must be >= 0")
	}
	if err := checkAmount("price", in.Price); err != nil {
		return err
	}
	if in.Category == "" {
		in.Category = models.CategoryBeverage
	}
	if !models.ValidCategory(in.Category) {
		return invalid("invalid category: %s", in.Category)
	}
	return nil
}

func AddDrink(ctx context.Context, in DrinkInput) (*models.Drink, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	return scanDrink(db.Pool.QueryRow(ctx, `
		INSERT INTO drinks (name, price, glyph, description, category, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+drinkColumns,
		in.Name, in.Price, in.Glyph, in.Description, in.Category, in.Available,
	))
}

func UpdateDrink(ctx context.Context, id int64, in DrinkInput) (*models.Drink, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	d, err := scanDrink(db.Pool.QueryRow(ctx, `
		UPDATE drinks SET
			name = $1, price = $2, glyph = $3, description = $4,
			category = $5, available = $6, updated_at = now()
		WHERE id = $7
		RETURNING `+drinkColumns,
		in.Name, in.Price, in.Glyph, in.Description, in.Category, in.Available, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("drink %d: %w", id, ErrNotFound)
	}
	return d, err
}

func DeleteDrink(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM drinks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("drink %d: %w", id, ErrNotFound)
	}
	return nil
}

func ListCustomizations(ctx context.Context) ([]models.Customization, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name, price FROM customizations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Customization{}
	for rows.Next() {
		var c models.Customization
		if err := rows.Scan(&c.ID, &c.Name, &c.Price); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func validateCustomization(name string, price decimal.Decimal) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name is required")
	}
	if price.IsNegative() {
		return "", invalid("price must be >= 0")
	}
	return name, nil
}

func AddCustomization(ctx context.Context, name string, price decimal.Decimal) (*models.Customization, error) {
	name, err := validateCustomization(name, price)
	if err != nil {
		return nil, err
	}
	c := models.Customization{Name: name, Price: price}
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO customizations (name, price) VALUES ($1, $2)
		RETURNING id`,
		name, price,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return nil, invalid("customization %q already exists", name)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func UpdateCustomization(ctx context.Context, id int64, name string, price decimal.Decimal) (*models.Customization, error) {
	name, err := validateCustomization(name, price)
	if err != nil {
		return nil, err
	}
	tag, err := db.Pool.Exec(ctx, `UPDATE customizations SET name = $1, price = $2 WHERE id = $3`, name, price, id)
	if isUniqueViolation(err) {
		return nil, invalid("customization %q already exists", name)
	}
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("customization %d: %w", id, ErrNotFound)
	}
	return &models.Customization{ID: id, Name: name, Price: price}, nil
}

func DeleteCustomization(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM customizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customization %d: %w", id, ErrNotFound)
	}
	return nil
}
