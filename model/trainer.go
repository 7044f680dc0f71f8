package model

import (
	"time"

	"gorm.io/datatypes"
)

// Trainer is the persisted player profile.
type Trainer struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID   int64     `gorm:"uniqueIndex;not null" json:"account_id"`
	Name        string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Yen         int64     `gorm:"default:0" json:"yen"`
	BattlesWon  int       `gorm:"default:0;index:idx_trainer_won" json:"battles_won"`
	BattlesLost int       `gorm:"default:0" json:"battles_lost"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Creature is one roster entry. Slot 0 is the active creature.
type Creature struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TrainerID int64          `gorm:"index:idx_creature_trainer;not null" json:"trainer_id"`
	Slot      int            `gorm:"not null" json:"slot"`
	SpeciesID int            `gorm:"not null" json:"species_id"`
	Name      string         `gorm:"size:64" json:"name"`
	Types     datatypes.JSON `json:"types"` // ["FIRE", ...]
	Moves     datatypes.JSON `json:"moves"` // ["Tackle", "Fire Strike"]
	HP        int            `json:"hp"`
	MaxHP     int            `json:"max_hp"`
	Attack    int            `json:"attack"`
	Defense   int            `json:"defense"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
