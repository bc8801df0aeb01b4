package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMigrateURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"postgresql", "postgresql://u:p@host:5432/db", "pgx5://u:p@host:5432/db"},
		{"postgres", "postgres://u:p@host/db?sslmode=disable", "pgx5://u:p@host/db?sslmode=disable"},
		{"other", "pgx5://host/db", "pgx5://host/db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toMigrateURL(tt.in))
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
