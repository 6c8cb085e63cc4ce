package repository

import "gorm.io/gorm"

// findPage 先统计总数，再按排序与分页取出当前页；pageSize <= 0 时返回全部。
// preloads 只作用于取数查询，不参与计数。
func findPage[T any](query *gorm.DB, page, pageSize int, order string, dest *[]T, preloads ...string) (int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		*dest = []T{}
		return 0, nil
	}
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	for _, name := range preloads {
		query = query.Preload(name)
	}
	if err := query.Order(order).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}
