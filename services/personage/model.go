package personage

import (
	"fmt"
	"time"
)

const (
	StartLevel = 1
	MaxLevel   = 100
)

// Money is a non-negative currency amount.
type Money int64

func (m Money) LessThan(o Money) bool { return m < o }
func (m Money) Add(o Money) Money     { return m + o }
func (m Money) Sub(o Money) Money     { return m - o }
func (m Money) Int64() int64          { return int64(m) }
func (m Money) String() string        { return fmt.Sprintf("%d", int64(m)) }

type Personage struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	UserID     int64     `gorm:"column:user_id;index"`
	Name       string    `gorm:"column:name"`
	Level      int       `gorm:"column:level"`
	CurrentExp int64     `gorm:"column:current_exp"`
	Money      Money     `gorm:"column:money"`
	Version    int64     `gorm:"column:version"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (Personage) TableName() string { return "personage" }

// ExpToNextLevel is the experience that completes level.
func ExpToNextLevel(level int) int64 {
	return int64(100 * level)
}

// ApplyExperience returns the level and in-level experience after gaining
// delta. Surplus experience carries into the next level; at MaxLevel it
// keeps accumulating without further level-ups.
func ApplyExperience(level int, current, delta int64) (int, int64) {
	if level < StartLevel {
		level = StartLevel
	}
	if delta > 0 {
		current += delta
	}
	for level < MaxLevel && current >= ExpToNextLevel(level) {
		current -= ExpToNextLevel(level)
		level++
	}
	return level, current
}
