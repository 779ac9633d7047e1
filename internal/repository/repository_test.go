package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email, Name: strings.Split(email, "@")[0], Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createProblem(t *testing.T, db *gorm.DB, problem models.Problem) models.Problem {
	t.Helper()
	if problem.Title == "" {
		problem.Title = "Block on incline"
	}
	if problem.Content == "" {
		problem.Content = "A block slides down a frictionless incline."
	}
	if problem.Solution == "" {
		problem.Solution = "Use energy conservation."
	}
	if problem.Answer == "" {
		problem.Answer = "v = sqrt(2gh)"
	}
	if problem.Tag == "" {
		problem.Tag = models.TagMechanics
	}
	if problem.Status == "" {
		problem.Status = models.StatusPending
	}
	require.NoError(t, db.Omit("User", "Offerer", "Examiners").Create(&problem).Error)
	return problem
}
