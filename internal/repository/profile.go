package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

// ErrProfileNotFound is returned when a profile ID has no row.
var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	Save(profile *models.Profile) error
	GetByID(id string) (*models.Profile, error)
	GetAll() ([]*models.Profile, error)
	Delete(id string) error
}

type profileRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewProfileRepository(db *sqlx.DB, logger *zap.Logger) ProfileRepository {
	return &profileRepository{db: db, logger: logger}
}

// profileRow is the database shape of a profile. Aliases map to a
// text[] column; the remaining nested structures are stored as jsonb.
type profileRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Aliases          pq.StringArray `db:"aliases"`
	ProfileSummary   string         `db:"profile_summary"`
	HardContext      string         `db:"hard_context"`
	SoftContext      string         `db:"soft_context"`
	GeneratedContext []byte         `db:"generated_context"`
	SearchLogs       []byte         `db:"search_logs"`
	CreatedAt        sql.NullTime   `db:"created_at"`
}

func (r *profileRepository) Save(profile *models.Profile) error {
	generated, err := json.Marshal(profile.GeneratedContext)
	if err != nil {
		return fmt.Errorf("marshal generated context: %w", err)
	}
	searchLogs, err := json.Marshal(profile.SearchLogs)
	if err != nil {
		return fmt.Errorf("marshal search logs: %w", err)
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO profiles (id, name, aliases, profile_summary, hard_context, soft_context, generated_context, search_logs, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.Exec(query, profile.ID, profile.Name, pq.StringArray(profile.Aliases), profile.ProfileSummary,
		profile.HardContext, profile.SoftContext, generated, searchLogs, profile.CreatedAt); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	sourceQuery := `INSERT INTO sources (id, profile_id, url, site_summary, relevancy_score, confidence, validation_reasoning, category, created_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, src := range profile.Sources {
		if _, err := tx.Exec(sourceQuery, src.ID, profile.ID, src.URL, src.SiteSummary,
			src.RelevancyScore, src.Confidence, src.ValidationReasoning, src.Category, src.CreatedAt); err != nil {
			return fmt.Errorf("insert source %s: %w", src.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.Info("Profile saved",
		zap.String("profile_id", profile.ID),
		zap.String("name", profile.Name),
		zap.Int("sources", len(profile.Sources)))
	return nil
}

func (r *profileRepository) GetByID(id string) (*models.Profile, error) {
	var row profileRow
	query := `SELECT id, name, aliases, profile_summary, hard_context, soft_context, generated_context, search_logs, created_at
	          FROM profiles WHERE id = $1`
	if err := r.db.Get(&row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	profile, err := r.hydrate(&row)
	if err != nil {
		return nil, err
	}

	sources, err := r.sourcesFor(id)
	if err != nil {
		return nil, err
	}
	profile.Sources = sources
	return profile, nil
}

func (r *profileRepository) GetAll() ([]*models.Profile, error) {
	var rows []profileRow
	query := `SELECT id, name, aliases, profile_summary, hard_context, soft_context, generated_context, search_logs, created_at
	          FROM profiles ORDER BY created_at DESC`
	if err := r.db.Select(&rows, query); err != nil {
		return nil, err
	}

	profiles := make([]*models.Profile, 0, len(rows))
	for i := range rows {
		profile, err := r.hydrate(&rows[i])
		if err != nil {
			return nil, err
		}
		sources, err := r.sourcesFor(profile.ID)
		if err != nil {
			return nil, err
		}
		profile.Sources = sources
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (r *profileRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	r.logger.Info("Profile deleted", zap.String("profile_id", id))
	return nil
}

func (r *profileRepository) sourcesFor(profileID string) ([]models.Source, error) {
	sources := []models.Source{}
	query := `SELECT id, profile_id, url, site_summary, relevancy_score, confidence, validation_reasoning, category, created_at
	          FROM sources WHERE profile_id = $1 ORDER BY relevancy_score DESC`
	if err := r.db.Select(&sources, query, profileID); err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *profileRepository) hydrate(row *profileRow) (*models.Profile, error) {
	profile := &models.Profile{
		ID:             row.ID,
		Name:           row.Name,
		ProfileSummary: row.ProfileSummary,
		HardContext:    row.HardContext,
		SoftContext:    row.SoftContext,
		Aliases:        []string{},
		SearchLogs:     []models.SearchLog{},
	}
	if row.CreatedAt.Valid {
		profile.CreatedAt = row.CreatedAt.Time
	}
	if len(row.Aliases) > 0 {
		profile.Aliases = []string(row.Aliases)
	}
	if len(row.GeneratedContext) > 0 {
		if err := json.Unmarshal(row.GeneratedContext, &profile.GeneratedContext); err != nil {
			return nil, fmt.Errorf("unmarshal generated context for %s: %w", row.ID, err)
		}
	}
	if len(row.SearchLogs) > 0 {
		if err := json.Unmarshal(row.SearchLogs, &profile.SearchLogs); err != nil {
			return nil, fmt.Errorf("unmarshal search logs for %s: %w", row.ID, err)
		}
	}
	return profile, nil
}
