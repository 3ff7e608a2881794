package models

import "time"

// Pool - общий аккаунт у провайдера с фиксированным числом мест
type Pool struct {
	BaseModel
	Provider  string     `gorm:"not null;index" json:"provider"`
	PoolType  string     `gorm:"not null" json:"pool_type"`
	Login     string     `json:"login"`
	Password  string     `json:"-"`
	StartAt   time.Time  `gorm:"not null" json:"start_at"`
	EndAt     time.Time  `gorm:"not null;index" json:"end_at"`
	MaxSeats  int        `gorm:"not null" json:"max_seats"`
	UsedSeats int        `gorm:"not null;default:0" json:"used_seats"`
	Status    PoolStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	IsAlive   bool       `gorm:"not null;default:true" json:"is_alive"`
	Notes     string     `json:"notes,omitempty"`
	Version   int        `gorm:"not null;default:1" json:"version"`

	// Relations
	Seats []Seat `gorm:"foreignKey:PoolID" json:"seats,omitempty"`
}

func (Pool) TableName() string {
	return "pools"
}

// FreeSeats - сколько мест еще можно выдать
func (p *Pool) FreeSeats() int {
	return p.MaxSeats - p.UsedSeats
}
