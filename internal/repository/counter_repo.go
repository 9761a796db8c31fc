package repository

import (
	"feedesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) WithTx(tx *gorm.DB) *CounterRepository {
	return &CounterRepository{db: tx}
}

// Next atomically increments the named counter and returns the new value.
// The first call for a name returns 1.
func (r *CounterRepository) Next(name string) (int64, error) {
	var c models.Counter
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"seq": gorm.Expr("seq + 1")}),
		}).Create(&models.Counter{Name: name, Seq: 1}).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", name).First(&c).Error
	})
	return c.Seq, err
}
