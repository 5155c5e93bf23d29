package organization

import (
	"fmt"
	"io"
	"strings"

	"go-hr/internal/common/models"

	"github.com/xuri/excelize/v2"
)

// ParseMembersExcel reads an org chart from the first sheet of an xlsx workbook.
// The header row must contain at least "id" and "name"; recognised optional columns are
// email, department, position, manager_id, roles and status.
func ParseMembersExcel(file io.Reader) ([]models.Member, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("Excel file is empty")
	}

	columns := map[string]int{}
	for i, h := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"id", "name"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	members := make([]models.Member, 0, len(rows)-1)
	for n, row := range rows[1:] {
		id := cell(row, "id")
		if id == "" {
			if strings.TrimSpace(strings.Join(row, "")) == "" {
				continue
			}
			return nil, fmt.Errorf("row %d: id is empty", n+2)
		}
		m := models.Member{
			ID:         id,
			Name:       cell(row, "name"),
			Email:      cell(row, "email"),
			Department: cell(row, "department"),
			Position:   cell(row, "position"),
			Roles:      splitRoles(strings.ReplaceAll(cell(row, "roles"), ";", ",")),
			Status:     models.MemberStatus(cell(row, "status")),
		}
		if mgr := cell(row, "manager_id"); mgr != "" {
			m.ManagerID = &mgr
		}
		if m.Status == "" {
			m.Status = models.MemberStatusActive
		}
		members = append(members, m)
	}
	return members, nil
}
