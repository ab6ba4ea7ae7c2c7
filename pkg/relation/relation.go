package relation

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Shared add/remove semantics for the user-to-target relation rows
// (favorites, shopping cart entries, follows). All three tables carry a
// composite unique index, so a concurrent duplicate insert surfaces as
// gorm.ErrDuplicatedKey and is treated as "already present".

// Add creates the relation row unless one matching cond already exists.
// It reports whether a new row was created; when it returns false the
// existing row is loaded into row.
func Add[T any](ctx context.Context, db *gorm.DB, cond map[string]interface{}, row *T) (bool, error) {
	var existing T
	err := db.WithContext(ctx).Where(cond).First(&existing).Error
	if err == nil {
		*row = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := db.WithContext(ctx).Where(cond).First(row).Error; err == nil {
				return false, nil
			}
		}
		return false, err
	}
	return true, nil
}

// Remove deletes the relation row matching cond. It returns
// gorm.ErrRecordNotFound when no such relation exists.
func Remove[T any](ctx context.Context, db *gorm.DB, cond map[string]interface{}) error {
	res := db.WithContext(ctx).Where(cond).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Exists reports whether a relation row matching cond is present.
func Exists[T any](ctx context.Context, db *gorm.DB, cond map[string]interface{}) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(new(T)).Where(cond).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
