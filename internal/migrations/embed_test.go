package migrations_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dayche/internal/migrations"
)

func TestFS_UpAndDownPairs(t *testing.T) {
	for _, dialect := range []string{"sqlserver", "postgres", "sqlite", "mysql"} {
		t.Run(dialect, func(t *testing.T) {
			ups, err := fs.Glob(migrations.FS, dialect+"/*.up.sql")
			require.NoError(t, err)
			require.NotEmpty(t, ups)
			for _, up := range ups {
				down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
				_, err := fs.Stat(migrations.FS, down)
				assert.NoError(t, err, "missing %s", down)
			}
		})
	}
}
