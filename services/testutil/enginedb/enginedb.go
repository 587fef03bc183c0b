// Package enginedb opens a test database carrying the full engine schema.
// It lives apart from testutil because the service packages that own the
// models use testutil in their own tests.
package enginedb

import (
	"testing"

	"seeker-engine/services/bootstrap"
	"seeker-engine/services/testutil"

	"gorm.io/gorm"
)

// New migrates every table bootstrap migrates in production.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewTestDB(t, bootstrap.Models()...)
}
