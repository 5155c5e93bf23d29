package organization

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go-hr/internal/common/models"
	"go-hr/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// SQLDirectory reads the organization chart from an external HRIS Postgres database.
// It expects an employees table with id, name, email, department, position, manager_id,
// roles (comma separated) and status columns.
type SQLDirectory struct {
	db *sql.DB
}

const memberColumns = `id, name, COALESCE(email, ''), COALESCE(department, ''), COALESCE(position, ''),
	manager_id, COALESCE(roles, ''), COALESCE(status, 'active')`

func NewSQLDirectory(lc fx.Lifecycle, cfg *config.Config) (*SQLDirectory, error) {
	if cfg.HRISDSN == "" {
		return nil, fmt.Errorf("HRIS_DSN is required when DIRECTORY_SOURCE=postgres")
	}
	db, err := sql.Open("postgres", cfg.HRISDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open HRIS database: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return db.PingContext(ctx) },
		OnStop:  func(ctx context.Context) error { return db.Close() },
	})
	return &SQLDirectory{db: db}, nil
}

func (d *SQLDirectory) FindMemberByID(ctx context.Context, id string) (*models.Member, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM employees WHERE id = $1`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (d *SQLDirectory) GetManagerOf(ctx context.Context, memberID string) (*models.Member, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+prefixed("m")+`
		FROM employees e JOIN employees m ON m.id = e.manager_id
		WHERE e.id = $1`, memberID)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (d *SQLDirectory) GetFilteredMembers(ctx context.Context, filter models.MemberFilter) ([]models.Member, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Department != "" {
		add("department = $%d", filter.Department)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.ManagerID != "" {
		add("manager_id = $%d", filter.ManagerID)
	}
	if filter.Role != "" {
		add("$%d = ANY(string_to_array(roles, ','))", filter.Role)
	}

	query := `SELECT ` + memberColumns + ` FROM employees`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMember(s scanner) (*models.Member, error) {
	var (
		m         models.Member
		managerID sql.NullString
		roles     string
		status    string
	)
	if err := s.Scan(&m.ID, &m.Name, &m.Email, &m.Department, &m.Position, &managerID, &roles, &status); err != nil {
		return nil, err
	}
	if managerID.Valid && managerID.String != "" {
		id := managerID.String
		m.ManagerID = &id
	}
	m.Roles = splitRoles(roles)
	m.Status = models.MemberStatus(status)
	return &m, nil
}

func prefixed(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.name, COALESCE(%[1]s.email, ''), COALESCE(%[1]s.department, ''),
	COALESCE(%[1]s.position, ''), %[1]s.manager_id, COALESCE(%[1]s.roles, ''), COALESCE(%[1]s.status, 'active')`, alias)
}

func splitRoles(raw string) []string {
	roles := []string{}
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
