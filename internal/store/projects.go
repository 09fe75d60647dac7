package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dlowans/facet/internal/metadata"
	"github.com/dlowans/facet/internal/project"
)

// ErrNotFound is returned when a project id doesn't exist.
var ErrNotFound = errors.New("project not found")

// CreateProject inserts p, applying defaults and validating first. The
// stored copy is returned.
func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return project.Project{}, fmt.Errorf("invalid project: %w", err)
	}

	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return project.Project{}, fmt.Errorf("failed to marshal tags: %w", err)
	}

	q := `
	INSERT INTO projects (
		id, user_id, title, status, company_id, artist_id,
		drill_shape, year_finished, mini_kit, tags, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.conn.ExecContext(ctx, q,
		p.ID,
		p.UserID,
		p.Title,
		string(p.Status),
		nullable(p.CompanyID),
		nullable(p.ArtistID),
		nullable(p.DrillShape),
		p.YearFinished,
		boolToInt(p.MiniKit),
		string(tagsJSON),
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return project.Project{}, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

// UpdateStatus moves project id to status and bumps updated_at. A
// project completed for the first time gets the current year as its
// finish year.
func (s *Store) UpdateStatus(ctx context.Context, id string, status project.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	q := `
	UPDATE projects SET
		status = ?,
		updated_at = ?,
		year_finished = CASE
			WHEN ? = 'completed' AND year_finished = 0 THEN ?
			ELSE year_finished
		END
	WHERE id = ?
	`
	now := time.Now()
	res, err := s.conn.ExecContext(ctx, q,
		string(status), now.Format(time.RFC3339), string(status), now.Year(), id)
	if err != nil {
		return fmt.Errorf("failed to update status of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteProject removes project id. Deleting a missing id is an error;
// the optimistic layer needs to know its patch was wrong.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetProject retrieves a single project by id.
func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	q := `
	SELECT p.id, p.user_id, p.title, p.status, p.company_id, p.artist_id,
	       p.drill_shape, p.year_finished, p.mini_kit, p.tags,
	       p.created_at, p.updated_at
	FROM projects p
	WHERE p.id = ?
	`
	rows, err := s.conn.QueryContext(ctx, q, id)
	if err != nil {
		return project.Project{}, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	defer rows.Close()

	projects, err := scanProjects(rows)
	if err != nil {
		return project.Project{}, err
	}
	if len(projects) == 0 {
		return project.Project{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return projects[0], nil
}

// UpsertCompany inserts or renames a company.
func (s *Store) UpsertCompany(ctx context.Context, c project.Company) error {
	q := `INSERT INTO companies (id, name) VALUES (?, ?)
	      ON CONFLICT(id) DO UPDATE SET name = excluded.name`
	if _, err := s.conn.ExecContext(ctx, q, c.ID, c.Name); err != nil {
		return fmt.Errorf("failed to upsert company %s: %w", c.ID, err)
	}
	return nil
}

// UpsertArtist inserts or renames an artist.
func (s *Store) UpsertArtist(ctx context.Context, a project.Artist) error {
	q := `INSERT INTO artists (id, name) VALUES (?, ?)
	      ON CONFLICT(id) DO UPDATE SET name = excluded.name`
	if _, err := s.conn.ExecContext(ctx, q, a.ID, a.Name); err != nil {
		return fmt.Errorf("failed to upsert artist %s: %w", a.ID, err)
	}
	return nil
}

// UpsertTag inserts or updates a tag.
func (s *Store) UpsertTag(ctx context.Context, t project.Tag) error {
	q := `INSERT INTO tags (id, name, color) VALUES (?, ?, ?)
	      ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color`
	if _, err := s.conn.ExecContext(ctx, q, t.ID, t.Name, nullable(t.Color)); err != nil {
		return fmt.Errorf("failed to upsert tag %s: %w", t.ID, err)
	}
	return nil
}

// LoadMetadata implements metadata.Source from the reference tables.
func (s *Store) LoadMetadata(ctx context.Context) (metadata.Data, error) {
	var d metadata.Data

	rows, err := s.conn.QueryContext(ctx, `SELECT id, name FROM companies ORDER BY name`)
	if err != nil {
		return d, fmt.Errorf("failed to load companies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c project.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return d, fmt.Errorf("failed to scan company: %w", err)
		}
		d.Companies = append(d.Companies, c)
	}
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("error iterating companies: %w", err)
	}

	rows, err = s.conn.QueryContext(ctx, `SELECT id, name FROM artists ORDER BY name`)
	if err != nil {
		return d, fmt.Errorf("failed to load artists: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a project.Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return d, fmt.Errorf("failed to scan artist: %w", err)
		}
		d.Artists = append(d.Artists, a)
	}
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("error iterating artists: %w", err)
	}

	rows, err = s.conn.QueryContext(ctx, `SELECT id, name, color FROM tags ORDER BY name`)
	if err != nil {
		return d, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t project.Tag
		var color sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &color); err != nil {
			return d, fmt.Errorf("failed to scan tag: %w", err)
		}
		t.Color = color.String
		d.Tags = append(d.Tags, t)
	}
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("error iterating tags: %w", err)
	}

	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
