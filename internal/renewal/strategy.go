package renewal

import (
	"time"

	"seatpool_backend/internal/models"
)

// DefaultIntervalDays используется для EVERY_N_DAYS, когда интервал не задан
const DefaultIntervalDays = 30

// Strategy - формула следующей даты продления от базовой даты
type Strategy interface {
	Next(base time.Time) time.Time
	Name() models.RenewalStrategy
}

// Monthly - +1 календарный месяц. Конец месяца прижимается к последнему дню
// следующего: 31 января -> 29 февраля.
type Monthly struct{}

func (Monthly) Next(base time.Time) time.Time {
	return AddMonths(base, 1)
}

func (Monthly) Name() models.RenewalStrategy {
	return models.RenewalStrategyMonthly
}

// EveryNDays - +N дней
type EveryNDays struct {
	Days int
}

func (s EveryNDays) Next(base time.Time) time.Time {
	days := s.Days
	if days <= 0 {
		days = DefaultIntervalDays
	}
	return base.AddDate(0, 0, days)
}

func (EveryNDays) Name() models.RenewalStrategy {
	return models.RenewalStrategyEveryNDays
}

// StrategyFor возвращает стратегию подписки. Неизвестное значение трактуется как MONTHLY.
func StrategyFor(sub *models.Subscription) Strategy {
	if sub.Strategy == models.RenewalStrategyEveryNDays {
		days := DefaultIntervalDays
		if sub.IntervalDays != nil && *sub.IntervalDays > 0 {
			days = *sub.IntervalDays
		}
		return EveryNDays{Days: days}
	}
	return Monthly{}
}

// AddMonths добавляет n календарных месяцев без переполнения на следующий месяц
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Первое число целевого месяца, затем прижимаем день
	first := time.Date(year, month+time.Month(n), 1, hour, min, sec, t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
