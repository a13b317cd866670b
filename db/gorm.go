// Audit logging for organization-scoped mutations, kept on GORM rather than
// pgx (unlike the rest of this package) because it's adapted directly from
// the teacher's RabbitLog model (db/postgres.go) rather than written fresh
// against the pgx pool — see DESIGN.md.
package db

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OrganizationAuditEntry records a mutation that invalidates the organization's
// cached entries (cache.ClearOrganization uses the same organization ID). It
// plays the role the teacher's RabbitLog played for message processing state,
// generalized to "an organization-scoped write happened, here's what and who".
type OrganizationAuditEntry struct {
	gorm.Model
	OrganizationID string
	ActorID        string // user or organization-key ID that performed the action
	Action         string // e.g. "key.create", "build.publish", "organization.icon_update"
	Detail         string `gorm:"type:text"`
}

// AuditLog is a thin GORM handle dedicated to OrganizationAuditEntry. It is
// deliberately separate from the pgx-backed Pool: audit writes are
// best-effort and off the hot read path, so giving them their own
// lightweight connection avoids contending with the pgxpool sized for
// request traffic.
type AuditLog struct {
	gorm *gorm.DB
}

// OpenAuditLog connects a dedicated GORM handle and ensures the audit table
// exists, mirroring the teacher's PGMigrations/AutoMigrate pattern.
func OpenAuditLog(dsn string) (*AuditLog, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gdb.AutoMigrate(&OrganizationAuditEntry{}); err != nil {
		return nil, err
	}

	return &AuditLog{gorm: gdb}, nil
}

// Record inserts one audit entry. Errors are returned rather than panicked
// on: callers treat audit logging as best-effort and log-and-continue.
func (a *AuditLog) Record(organizationID, actorID, action, detail string) error {
	return a.gorm.Create(&OrganizationAuditEntry{
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         action,
		Detail:         detail,
	}).Error
}

// ForOrganization returns the most recent entries for an organization, newest
// first, capped at limit.
func (a *AuditLog) ForOrganization(organizationID string, limit int) ([]OrganizationAuditEntry, error) {
	var entries []OrganizationAuditEntry
	err := a.gorm.
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Close releases the underlying connection pool.
func (a *AuditLog) Close() error {
	sqlDB, err := a.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
