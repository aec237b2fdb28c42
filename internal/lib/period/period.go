package period

import (
	"time"
)

// Next возвращает дату окончания следующего оплаченного периода,
// начинающегося в from и длящегося months месяцев.
func Next(from time.Time, months int) time.Time {
	if months <= 0 {
		months = 1
	}
	return from.AddDate(0, months, 0)
}

// WithinWindow сообщает, попадает ли endDate в окно window от момента now.
// Уже истёкшие даты тоже считаются попавшими в окно: пропущенная проверка
// не должна выводить подписку из-под продления.
func WithinWindow(endDate, now time.Time, window time.Duration) bool {
	return !endDate.After(now.Add(window))
}

// Overdue сообщает, прошло ли с момента endDate больше, чем grace.
func Overdue(endDate, now time.Time, grace time.Duration) bool {
	return now.After(endDate.Add(grace))
}
