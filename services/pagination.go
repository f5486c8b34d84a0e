package services

import (
	"github.com/dutyfinder/dutyfinder-api/utils"
	"gorm.io/gorm"
)

// listPage counts the filtered rows and loads one ordered page into dest
func listPage(query *gorm.DB, page, limit int, order string, dest interface{}, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}

	page, limit = utils.NormalizePage(page, limit)
	err := query.Scopes(scopes...).
		Order(order).
		Offset(utils.Offset(page, limit)).
		Limit(limit).
		Find(dest).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func historyNewestFirst(db *gorm.DB) *gorm.DB {
	return db.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("date DESC")
	})
}
