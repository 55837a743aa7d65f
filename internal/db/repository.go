package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/internal/tree"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SceneRepository provides scene-related database operations
type SceneRepository struct {
	*Repository
}

// NewSceneRepository creates a new scene repository
func NewSceneRepository(repo *Repository) *SceneRepository {
	return &SceneRepository{Repository: repo}
}

// GetByID retrieves a scene by ID
func (r *SceneRepository) GetByID(ctx context.Context, id int64) (*models.Scene, error) {
	var scene models.Scene
	if err := r.db.WithContext(ctx).First(&scene, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &scene, nil
}

// GetForView retrieves a scene with its badges and its children's
// badges preloaded
func (r *SceneRepository) GetForView(ctx context.Context, id int64) (*models.Scene, error) {
	var scene models.Scene
	if err := r.db.WithContext(ctx).
		Preload("Badges").
		Preload("Children").
		Preload("Children.Badges").
		First(&scene, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &scene, nil
}

// Create creates a new scene
func (r *SceneRepository) Create(ctx context.Context, scene *models.Scene) error {
	return r.db.WithContext(ctx).Create(scene).Error
}

// IncrementLikes adds one like to every listed scene
func (r *SceneRepository) IncrementLikes(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Scene{}).
		Where("id IN ?", ids).
		UpdateColumn("likes", gorm.Expr("likes + 1")).Error
}

// IncrementDislikes adds one dislike to the scene
func (r *SceneRepository) IncrementDislikes(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Scene{}).
		Where("id = ?", id).
		UpdateColumn("dislikes", gorm.Expr("dislikes + 1")).Error
}

// SceneRelations returns every scene's (id, parent) pair for the
// relation cache build
func (r *SceneRepository) SceneRelations(ctx context.Context) ([]tree.Pair, error) {
	var pairs []tree.Pair
	if err := r.db.WithContext(ctx).
		Model(&models.Scene{}).
		Select("id", "parent_id AS parent").
		Order("id").
		Scan(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

// RatingRepository provides rating-related database operations
type RatingRepository struct {
	*Repository
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(repo *Repository) *RatingRepository {
	return &RatingRepository{Repository: repo}
}

// CreatedSince retrieves the owner's ratings created at or after the
// given instant
func (r *RatingRepository) CreatedSince(ctx context.Context, ownerID int64, since time.Time) ([]models.SceneRating, error) {
	var ratings []models.SceneRating
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND created_at >= ?", ownerID, since).
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

// CreateBatch inserts rating rows in one statement. A conflict on the
// (owner, scene, day) unique index is reported as a duplicate rating.
func (r *RatingRepository) CreateBatch(ctx context.Context, ratings []*models.SceneRating) error {
	if len(ratings) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&ratings).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateRating
		}
		return err
	}
	return nil
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by lowercased username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("username_lower = ?", username).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
