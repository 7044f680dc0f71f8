package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LeeIsaac1201/gaole/game/battle"
	"github.com/LeeIsaac1201/gaole/game/element"
	"github.com/LeeIsaac1201/gaole/game/player"
	"github.com/LeeIsaac1201/gaole/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("store: trainer not found")
	ErrExists   = errors.New("store: trainer already exists")
)

// TrainerStore persists trainer profiles and their rosters.
type TrainerStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTrainerStore creates a TrainerStore.
func NewTrainerStore(db *gorm.DB, logger *zap.Logger) *TrainerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainerStore{db: db, logger: logger}
}

// Create inserts a new profile for accountID, optionally seeded with a
// starter creature. Each account owns at most one trainer and names are
// unique.
func (s *TrainerStore) Create(ctx context.Context, accountID int64, name string, yen int64, starter *battle.Combatant) (*player.Trainer, error) {
	row := model.Trainer{AccountID: accountID, Name: name, Yen: max(0, yen)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Trainer{}).
			Where("account_id = ? OR name = ?", accountID, name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrExists
		}
		if err := tx.Create(&row).Error; err != nil {
			// Lost a race with a concurrent create.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrExists
			}
			return err
		}
		if starter == nil {
			return nil
		}
		c := creatureRow(row.ID, 0, starter)
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store: create trainer %q: %w", name, err)
	}
	t := player.FromProfile(player.Profile{
		ID:        row.ID,
		AccountID: accountID,
		Name:      name,
		Yen:       row.Yen,
	})
	if starter != nil {
		t.Add(starter.Clone())
	}
	s.logger.Info("trainer created", zap.Int64("trainer_id", row.ID), zap.String("name", name))
	return t, nil
}

// Load reads a trainer by id.
func (s *TrainerStore) Load(ctx context.Context, id int64) (*player.Trainer, error) {
	return s.load(ctx, "id = ?", id)
}

// LoadByAccount reads the trainer owned by an account.
func (s *TrainerStore) LoadByAccount(ctx context.Context, accountID int64) (*player.Trainer, error) {
	return s.load(ctx, "account_id = ?", accountID)
}

func (s *TrainerStore) load(ctx context.Context, query string, arg int64) (*player.Trainer, error) {
	db := s.db.WithContext(ctx)
	var row model.Trainer
	if err := db.Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: load trainer: %w", err)
	}
	var creatures []model.Creature
	if err := db.Where("trainer_id = ?", row.ID).Order("slot ASC, id ASC").Find(&creatures).Error; err != nil {
		return nil, fmt.Errorf("store: load roster: %w", err)
	}
	p := player.Profile{
		ID:        row.ID,
		AccountID: row.AccountID,
		Name:      row.Name,
		Yen:       row.Yen,
		Won:       row.BattlesWon,
		Lost:      row.BattlesLost,
		Roster:    make([]*battle.Combatant, 0, len(creatures)),
	}
	for _, c := range creatures {
		p.Roster = append(p.Roster, s.combatant(c))
	}
	return player.FromProfile(p), nil
}

// Save writes the trainer's balance, record and full roster in one
// transaction. The roster rows are replaced wholesale.
func (s *TrainerStore) Save(ctx context.Context, t *player.Trainer) error {
	p := t.Profile()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Trainer{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"yen":          p.Yen,
			"battles_won":  p.Won,
			"battles_lost": p.Lost,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("trainer_id = ?", p.ID).Delete(&model.Creature{}).Error; err != nil {
			return err
		}
		if len(p.Roster) == 0 {
			return nil
		}
		rows := make([]model.Creature, len(p.Roster))
		for i, c := range p.Roster {
			rows[i] = creatureRow(p.ID, i, c)
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("store: save trainer %d: %w", p.ID, err)
	}
	return nil
}

// Delete removes a trainer and its roster.
func (s *TrainerStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trainer_id = ?", id).Delete(&model.Creature{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Trainer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// TopWinners returns up to n trainers ordered by battles won.
func (s *TrainerStore) TopWinners(ctx context.Context, n int) ([]model.Trainer, error) {
	if n <= 0 {
		n = 10
	}
	var rows []model.Trainer
	err := s.db.WithContext(ctx).
		Order("battles_won DESC, id ASC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}

func creatureRow(trainerID int64, slot int, c *battle.Combatant) model.Creature {
	types := make([]string, 0, len(c.Types()))
	for _, t := range c.Types() {
		types = append(types, t.Key())
	}
	moves := make([]string, 0, len(c.Moves()))
	for _, m := range c.Moves() {
		moves = append(moves, m.Name())
	}
	typesJSON, _ := json.Marshal(types)
	movesJSON, _ := json.Marshal(moves)
	return model.Creature{
		TrainerID: trainerID,
		Slot:      slot,
		SpeciesID: c.SpeciesID(),
		Name:      c.Name(),
		Types:     datatypes.JSON(typesJSON),
		Moves:     datatypes.JSON(movesJSON),
		HP:        c.HP(),
		MaxHP:     c.MaxHP(),
		Attack:    c.Attack(),
		Defense:   c.Defense(),
	}
}

// combatant rebuilds a roster entry. Unreadable JSON columns load as empty
// lists rather than failing the whole profile.
func (s *TrainerStore) combatant(row model.Creature) *battle.Combatant {
	var types, moves []string
	if len(row.Types) > 0 {
		if err := json.Unmarshal(row.Types, &types); err != nil {
			s.logger.Warn("creature types unreadable", zap.Int64("creature_id", row.ID), zap.Error(err))
			types = nil
		}
	}
	if len(row.Moves) > 0 {
		if err := json.Unmarshal(row.Moves, &moves); err != nil {
			s.logger.Warn("creature moves unreadable", zap.Int64("creature_id", row.ID), zap.Error(err))
			moves = nil
		}
	}
	return battle.NewCombatant(battle.CombatantConfig{
		SpeciesID: row.SpeciesID,
		Name:      row.Name,
		Types:     element.ParseAll(types),
		MaxHP:     row.MaxHP,
		HP:        row.HP,
		Attack:    row.Attack,
		Defense:   row.Defense,
		Moves:     battle.MovesByName(moves),
	})
}
