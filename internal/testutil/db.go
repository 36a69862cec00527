// Package testutil provides database fixtures for package tests
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/database"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// The pool is limited to one connection so the database lives as long as the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestDossier creates a dossier and returns it
func CreateTestDossier(t *testing.T, db *gorm.DB, name string) *domain.Dossier {
	t.Helper()
	dossier := &domain.Dossier{
		Name:      name,
		Reference: fmt.Sprintf("D-%d", time.Now().UnixNano()%1000000),
		CreatedBy: "Test User",
	}
	require.NoError(t, db.Create(dossier).Error)
	return dossier
}

// CreateTestDefinition creates a placeholder definition and returns it
func CreateTestDefinition(t *testing.T, db *gorm.DB, key string, valueType domain.ValueType) *domain.PlaceholderDefinition {
	t.Helper()
	def := &domain.PlaceholderDefinition{Key: key, ValueType: valueType, Label: key}
	require.NoError(t, db.Create(def).Error)
	return def
}

// CreateTestTemplate creates a template with one section per content string,
// linking every [[key]] marker in the content to a definition
func CreateTestTemplate(t *testing.T, db *gorm.DB, name string, contents ...string) *domain.Template {
	t.Helper()
	template := &domain.Template{Name: name}
	require.NoError(t, db.Create(template).Error)

	for i, content := range contents {
		section := &domain.TemplateSection{
			TemplateID:      template.ID,
			Order:           i + 1,
			Title:           fmt.Sprintf("Artikel %d", i+1),
			ContentTemplate: content,
		}
		require.NoError(t, db.Create(section).Error)

		for _, key := range domain.ExtractMarkerKeys(content) {
			var def domain.PlaceholderDefinition
			err := db.Where("key = ?", key).First(&def).Error
			if err != nil {
				def = domain.PlaceholderDefinition{Key: key, ValueType: domain.ValueTypeText, Label: key}
				require.NoError(t, db.Create(&def).Error)
			}
			require.NoError(t, db.Create(&domain.SectionPlaceholderLink{
				TemplateSectionID:       section.ID,
				PlaceholderDefinitionID: def.ID,
			}).Error)
		}
		template.Sections = append(template.Sections, *section)
	}
	return template
}

// UserContext returns a context carrying an authenticated user with the given roles
func UserContext(roles ...string) context.Context {
	if len(roles) == 0 {
		roles = []string{auth.RoleEditor}
	}
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      "test-user",
		DisplayName: "Test User",
		Email:       "test@example.com",
		Roles:       roles,
	})
}
