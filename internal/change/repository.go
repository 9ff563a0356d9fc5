package change

import (
	"context"

	"gorm.io/gorm"
)

type ChangeRepository interface {
	Create(ctx context.Context, change *Change) error
	FindByID(ctx context.Context, id string) (*Change, error)
	UpdateStatus(ctx context.Context, change *Change) error
	List(ctx context.Context, documentID string, filter Filter) ([]Change, error)
	CountByStatus(ctx context.Context, documentID string, filter Filter) (Stats, error)
	CreateComment(ctx context.Context, comment *ChangeComment) error
}

type ChangeRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new change repository
func NewRepository(db *gorm.DB) ChangeRepository {
	return &ChangeRepositoryImpl{db: db}
}

func (r *ChangeRepositoryImpl) Create(ctx context.Context, change *Change) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *ChangeRepositoryImpl) FindByID(ctx context.Context, id string) (*Change, error) {
	var c Change
	err := r.db.WithContext(ctx).
		Preload("Comments").
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChangeRepositoryImpl) UpdateStatus(ctx context.Context, change *Change) error {
	return r.db.WithContext(ctx).Model(change).
		Select("status", "approver_id", "rejecter_id").
		Updates(map[string]interface{}{
			"status":      change.Status,
			"approver_id": change.ApproverID,
			"rejecter_id": change.RejecterID,
		}).Error
}

func (r *ChangeRepositoryImpl) List(ctx context.Context, documentID string, filter Filter) ([]Change, error) {
	var changes []Change
	query := r.scoped(ctx, documentID, filter).
		Preload("Comments").
		Order("timestamp DESC")
	if filter.PerPage > 0 {
		query = query.Offset((filter.Page - 1) * filter.PerPage).Limit(filter.PerPage)
	}
	err := query.Find(&changes).Error
	return changes, err
}

func (r *ChangeRepositoryImpl) CountByStatus(ctx context.Context, documentID string, filter Filter) (Stats, error) {
	var stats Stats

	type row struct {
		Status Status
		N      int64
	}
	var rows []row

	err := r.scoped(ctx, documentID, filter).
		Select("status, count(1) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}

	for _, rw := range rows {
		stats.Total += rw.N
		switch rw.Status {
		case StatusPending:
			stats.Pending = rw.N
		case StatusApproved:
			stats.Approved = rw.N
		case StatusRejected:
			stats.Rejected = rw.N
		}
	}
	return stats, nil
}

func (r *ChangeRepositoryImpl) CreateComment(ctx context.Context, comment *ChangeComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *ChangeRepositoryImpl) scoped(ctx context.Context, documentID string, filter Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Change{}).Where("document_id = ?", documentID)
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}
	if filter.AuthorID != nil {
		q = q.Where("author_id = ?", *filter.AuthorID)
	}
	return q
}
