package devserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// userRecord — строка таблицы пользователей.
type userRecord struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	Role         string `gorm:"not null"`
	AvatarURL    string
	PhoneNumber  string
	District     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// refreshRecord — выданный refresh-токен; храним только sha256-хэш.
type refreshRecord struct {
	Hash      string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// docRecord — документ каталога: произвольный ресурс как JSON-блоб.
// Для dev-стаба схема по коллекциям не нужна, фильтрация делается в памяти.
type docRecord struct {
	Collection string `gorm:"primaryKey"`
	ID         string `gorm:"primaryKey"`
	Data       []byte `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Storage — SQLite-хранилище dev-бэкенда.
type Storage struct {
	db *gorm.DB
}

// OpenStorage открывает (или создаёт) базу по DSN и накатывает схему.
// Для эфемерного запуска годится "file::memory:?cache=shared".
func OpenStorage(dsn string) (*Storage, error) {
	const op = "devserver.OpenStorage"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.AutoMigrate(&userRecord{}, &refreshRecord{}, &docRecord{}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) CreateUser(ctx context.Context, u *userRecord) error {
	const op = "devserver.Storage.CreateUser"

	var count int64
	if err := s.db.WithContext(ctx).Model(&userRecord{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count > 0 {
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*userRecord, error) {
	const op = "devserver.Storage.UserByEmail"

	var u userRecord
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (*userRecord, error) {
	const op = "devserver.Storage.UserByID"

	var u userRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

func (s *Storage) SaveRefreshToken(ctx context.Context, rec *refreshRecord) error {
	const op = "devserver.Storage.SaveRefreshToken"

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*refreshRecord, error) {
	const op = "devserver.Storage.RefreshTokenByHash"

	var rec refreshRecord
	if err := s.db.WithContext(ctx).Where("hash = ?", hash).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rec, nil
}

func (s *Storage) RevokeRefreshToken(ctx context.Context, hash string) error {
	const op = "devserver.Storage.RevokeRefreshToken"

	if err := s.db.WithContext(ctx).
		Model(&refreshRecord{}).
		Where("hash = ?", hash).
		Update("revoked", true).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) PutDoc(ctx context.Context, collection, id string, data []byte) error {
	const op = "devserver.Storage.PutDoc"

	rec := docRecord{Collection: collection, ID: id, Data: data}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Doc(ctx context.Context, collection, id string) ([]byte, error) {
	const op = "devserver.Storage.Doc"

	var rec docRecord
	if err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec.Data, nil
}

func (s *Storage) Docs(ctx context.Context, collection string) ([][]byte, error) {
	const op = "devserver.Storage.Docs"

	var recs []docRecord
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([][]byte, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Data)
	}

	return out, nil
}

func (s *Storage) DeleteDoc(ctx context.Context, collection, id string) error {
	const op = "devserver.Storage.DeleteDoc"

	res := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&docRecord{})
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}
