package storage

import (
	"context"
	"fmt"

	"github.com/tg-promo/promobot/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// postgresBackend stores the snapshot as rows. Saves rewrite both tables in
// one transaction so the persisted state is always a complete snapshot, the
// same contract the file backend gives.
type postgresBackend struct {
	db *gorm.DB
}

type userRow struct {
	Pos         int `gorm:"index"`
	models.User `gorm:"embedded"`
}

func (userRow) TableName() string { return "users" }

type entityRow struct {
	Kind          models.Kind `gorm:"primaryKey"`
	Pos           int         `gorm:"index"`
	models.Entity `gorm:"embedded"`
}

func (entityRow) TableName() string { return "entities" }

func openPostgres(dsn string) (Backend, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := db.AutoMigrate(&userRow{}, &entityRow{}); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &postgresBackend{db: db}, nil
}

func (b *postgresBackend) Load(ctx context.Context) (*Snapshot, error) {
	snap := emptySnapshot()

	var users []userRow
	if err := b.db.WithContext(ctx).Order("pos").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	for _, row := range users {
		u := row.User
		snap.Users = append(snap.Users, &u)
	}

	var entities []entityRow
	if err := b.db.WithContext(ctx).Order("pos").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}
	for _, row := range entities {
		e := row.Entity
		switch row.Kind {
		case models.KindChannel:
			snap.Channels = append(snap.Channels, &e)
		case models.KindGroup:
			snap.Groups = append(snap.Groups, &e)
		}
	}

	return snap, nil
}

func (b *postgresBackend) Save(ctx context.Context, snap *Snapshot) error {
	users := make([]userRow, 0, len(snap.Users))
	for i, u := range snap.Users {
		users = append(users, userRow{Pos: i, User: *u})
	}

	entities := make([]entityRow, 0, len(snap.Channels)+len(snap.Groups))
	for i, e := range snap.Channels {
		entities = append(entities, entityRow{Kind: models.KindChannel, Pos: i, Entity: *e})
	}
	for i, e := range snap.Groups {
		entities = append(entities, entityRow{Kind: models.KindGroup, Pos: i, Entity: *e})
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&userRow{}).Error; err != nil {
			return fmt.Errorf("clearing users: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entityRow{}).Error; err != nil {
			return fmt.Errorf("clearing entities: %w", err)
		}
		if len(users) > 0 {
			if err := tx.Create(&users).Error; err != nil {
				return fmt.Errorf("creating users: %w", err)
			}
		}
		if len(entities) > 0 {
			if err := tx.Create(&entities).Error; err != nil {
				return fmt.Errorf("creating entities: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("in tx: %w", err)
	}

	return nil
}

func (b *postgresBackend) Close() error {
	db, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql db: %w", err)
	}
	return db.Close()
}
