package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		want     string
		contains []string
	}{
		{
			name: "defaults",
			cfg:  Config{User: "kaizen", Name: "kaizen_fest"},
			want: "host=localhost port=5432 user=kaizen dbname=kaizen_fest sslmode=disable",
		},
		{
			name: "managed instance",
			cfg: Config{
				User:     "fest_api",
				Name:     "kaizen_2027",
				Host:     "db.ritp.internal",
				Port:     6543,
				Password: "gate-pass",
				Options:  map[string]string{"sslmode": "require", "search_path": "fest"},
			},
			contains: []string{
				"host=db.ritp.internal",
				"port=6543",
				"user=fest_api",
				"dbname=kaizen_2027",
				"password=gate-pass",
				"search_path=fest",
				"sslmode=require",
			},
		},
		{
			name: "dsn override wins",
			cfg:  Config{DSN: "postgres://fest@db/kaizen", User: "ignored"},
			want: "postgres://fest@db/kaizen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := buildPostgresDSN(tt.cfg)
			require.NoError(t, err)
			if tt.want != "" {
				require.Equal(t, tt.want, dsn)
			}
			for _, part := range tt.contains {
				require.Contains(t, dsn, part)
			}
		})
	}
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{Host: "db.ritp.internal"})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "kaizen", Name: "kaizen_fest"})
	require.NoError(t, err)
	require.Equal(t, "kaizen@tcp(127.0.0.1:3306)/kaizen_fest?charset=utf8mb4&loc=Local&parseTime=True", dsn)

	dsn, err = buildMySQLDSN(Config{
		User:     "fest_api",
		Password: "gate-pass",
		Name:     "kaizen_2027",
		Host:     "mysql.ritp.internal",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify", "loc": "Asia/Kolkata"},
	})
	require.NoError(t, err)
	require.Equal(t,
		"fest_api:gate-pass@tcp(mysql.ritp.internal:3307)/kaizen_2027?charset=utf8mb4&loc=Asia/Kolkata&parseTime=True&tls=skip-verify",
		dsn)
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestBuildSQLiteDSN(t *testing.T) {
	for _, path := range []string{"", "  ", ":memory:", ":MEMORY:"} {
		dsn, err := buildSQLiteDSN(Config{Path: path})
		require.NoError(t, err)
		require.Equal(t, sqliteMemoryDSN, dsn)
	}

	dsn, err := buildSQLiteDSN(Config{DSN: "file:custom.db", Path: "ignored.db"})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db", dsn)

	path := filepath.Join(t.TempDir(), "data", "kaizen.sqlite")
	dsn, err = buildSQLiteDSN(Config{Path: path})
	require.NoError(t, err)
	require.Contains(t, dsn, "file:"+filepath.ToSlash(path)+"?")
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.Contains(t, dsn, "_busy_timeout=5000")

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
