// Package store provides the embedded SQLite database behind the
// dashboard: project listings with the full filter predicate, project
// mutations, reference records and per-user navigation context.
//
// The database runs embedded with WAL mode so the dashboard's reads
// stay concurrent with daemon writes. It is the in-process stand-in
// for the hosted backend the filter layer was designed against; both
// sides of that boundary speak query.Request/query.Page.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/metadata"
	"github.com/dlowans/facet/internal/project"
	"github.com/dlowans/facet/internal/query"
)

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path, creating
// the parent directory if needed. The caller must call Close when
// done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL keeps reads concurrent with writes.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return s, nil
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the schema if it doesn't exist. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'stash',
		company_id TEXT,
		artist_id TEXT,
		drill_shape TEXT,
		year_finished INTEGER NOT NULL DEFAULT 0,
		mini_kit INTEGER NOT NULL DEFAULT 0,
		tags TEXT,  -- JSON array of tag ids
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS artists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT
	);

	-- One navigation-context snapshot per user, stored as JSON so the
	-- schema survives filter-state additions.
	CREATE TABLE IF NOT EXISTS nav_context (
		user_id TEXT PRIMARY KEY,
		snapshot TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);
	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	CREATE INDEX IF NOT EXISTS idx_projects_company ON projects(company_id);
	CREATE INDEX IF NOT EXISTS idx_projects_artist ON projects(artist_id);
	CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);

	-- Composite index for the dashboard's default listing
	CREATE INDEX IF NOT EXISTS idx_projects_dashboard
	    ON projects(user_id, status, updated_at);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// sortColumns maps sort fields to ORDER BY expressions. Company and
// artist sort by display name via the reference joins.
var sortColumns = map[filter.SortField]string{
	filter.SortLastUpdated:  "p.updated_at",
	filter.SortDateAdded:    "p.created_at",
	filter.SortTitle:        "p.title COLLATE NOCASE",
	filter.SortCompany:      "c.name COLLATE NOCASE",
	filter.SortArtist:       "a.name COLLATE NOCASE",
	filter.SortYearFinished: "p.year_finished",
	filter.SortStatus:       "p.status",
}

// FetchPage implements query.PageFetcher: one page of projects under
// the full filter predicate, plus totals and per-status counts. The
// status counts apply every predicate except the status filter itself,
// so tab badges stay correct without one query per tab.
func (s *Store) FetchPage(ctx context.Context, req query.Request) (*query.Page, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	conditions, args := buildConditions(req.Filters, true)
	where := " WHERE " + strings.Join(conditions, " AND ")
	from := `
	FROM projects p
	LEFT JOIN companies c ON c.id = p.company_id
	LEFT JOIN artists a ON a.id = p.artist_id`

	page := &query.Page{Items: []project.Project{}}

	var total int
	countQuery := "SELECT COUNT(*)" + from + where
	if err := s.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	page.TotalItems = total
	page.TotalPages = (total + req.PageSize - 1) / req.PageSize

	order := sortColumns[req.SortField]
	dir := "DESC"
	if req.SortDirection == filter.SortAsc {
		dir = "ASC"
	}

	listQuery := `
	SELECT p.id, p.user_id, p.title, p.status, p.company_id, p.artist_id,
	       p.drill_shape, p.year_finished, p.mini_kit, p.tags,
	       p.created_at, p.updated_at` +
		from + where +
		fmt.Sprintf(" ORDER BY %s %s, p.id ASC LIMIT ? OFFSET ?", order, dir)
	listArgs := append(append([]interface{}{}, args...),
		req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := s.conn.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	page.Items, err = scanProjects(rows)
	if err != nil {
		return nil, err
	}

	page.StatusCounts, err = s.statusCounts(ctx, req.Filters)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// statusCounts groups matching projects by status with the status
// filter itself removed from the predicate.
func (s *Store) statusCounts(ctx context.Context, f query.ServerFilters) (map[project.Status]int, error) {
	conditions, args := buildConditions(f, false)
	q := `
	SELECT p.status, COUNT(*)
	FROM projects p
	LEFT JOIN companies c ON c.id = p.company_id
	LEFT JOIN artists a ON a.id = p.artist_id
	WHERE ` + strings.Join(conditions, " AND ") + `
	GROUP BY p.status`

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[project.Status]int)
	for rows.Next() {
		var status project.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

// buildConditions translates server filters to SQL. withStatus toggles
// the status predicate for the status-counts variant.
func buildConditions(f query.ServerFilters, withStatus bool) ([]string, []interface{}) {
	conditions := []string{"p.user_id = ?"}
	args := []interface{}{f.UserID}

	if withStatus && len(f.Statuses) > 0 {
		placeholders := strings.Repeat("?,", len(f.Statuses))
		conditions = append(conditions,
			fmt.Sprintf("p.status IN (%s)", placeholders[:len(placeholders)-1]))
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}

	if f.Company != "" {
		conditions = append(conditions, "p.company_id = ?")
		args = append(args, f.Company)
	}
	if f.Artist != "" {
		conditions = append(conditions, "p.artist_id = ?")
		args = append(args, f.Artist)
	}
	if f.DrillShape != "" {
		conditions = append(conditions, "p.drill_shape = ?")
		args = append(args, f.DrillShape)
	}
	if f.YearFinished != "" {
		conditions = append(conditions, "p.year_finished = ?")
		args = append(args, f.YearFinished)
	}
	if f.ExcludeMiniKits {
		conditions = append(conditions, "p.mini_kit = 0")
	}
	if f.Search != "" {
		conditions = append(conditions, "instr(lower(p.title), lower(?)) > 0")
		args = append(args, f.Search)
	}

	// Tag narrowing is conjunctive: a project must carry every
	// selected tag.
	for _, tag := range f.Tags {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM json_each(p.tags) WHERE json_each.value = ?)")
		args = append(args, tag)
	}

	return conditions, args
}

// validateRequest rejects requests the filter layer should never
// produce. These map to query.ErrInvalidFilter so the coordinator
// surfaces them without retrying.
func validateRequest(req query.Request) error {
	if req.Filters.UserID == "" {
		return fmt.Errorf("%w: empty user id", query.ErrInvalidFilter)
	}
	if req.Page < 1 {
		return fmt.Errorf("%w: page %d", query.ErrInvalidFilter, req.Page)
	}
	if !filter.ValidPageSize(req.PageSize) {
		return fmt.Errorf("%w: page size %d", query.ErrInvalidFilter, req.PageSize)
	}
	if _, ok := sortColumns[req.SortField]; !ok {
		return fmt.Errorf("%w: sort field %q", query.ErrInvalidFilter, req.SortField)
	}
	for _, st := range req.Filters.Statuses {
		if !st.Valid() {
			return fmt.Errorf("%w: status %q", query.ErrInvalidFilter, st)
		}
	}
	return nil
}

func scanProjects(rows *sql.Rows) ([]project.Project, error) {
	projects := []project.Project{}

	for rows.Next() {
		var p project.Project
		var companyID, artistID, drillShape, tagsJSON sql.NullString
		var miniKit int
		var createdAt, updatedAt string

		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Title,
			&p.Status,
			&companyID,
			&artistID,
			&drillShape,
			&p.YearFinished,
			&miniKit,
			&tagsJSON,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		p.CompanyID = companyID.String
		p.ArtistID = artistID.String
		p.DrillShape = drillShape.String
		p.MiniKit = miniKit != 0

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			p.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			p.UpdatedAt = t
		}

		if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &p.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
			}
		} else {
			p.Tags = []string{}
		}

		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// interface conformance
var (
	_ query.PageFetcher = (*Store)(nil)
	_ metadata.Source   = (*Store)(nil)
)
