package store

import (
	"database/sql"
	"fmt"

	"github.com/SafePath-UK/SafePath/internal/models"
)

// scanService scans a Service from sql.Rows. Phone and description are
// nullable columns.
func scanService(rows *sql.Rows) (models.Service, error) {
	var svc models.Service
	var phone, description sql.NullString
	if err := rows.Scan(&svc.ID, &svc.Name, &svc.LocalAuthority, &svc.Category, &phone, &description); err != nil {
		return svc, fmt.Errorf("scan service failed: %w", err)
	}
	svc.Phone = phone.String
	svc.Description = description.String
	return svc, nil
}
