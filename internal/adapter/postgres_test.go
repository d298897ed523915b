package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		params PostgresParams
		want   string
	}{
		{
			name: "credentials",
			cfg:  Config{Host: "warehouse", Port: 5432, Database: "retail", Username: "modeler", Password: "s3cret"},
			want: "host=warehouse port=5432 dbname=retail sslmode=disable user=modeler password=s3cret",
		},
		{
			name: "sslmode option",
			cfg:  Config{Host: "pg.internal", Database: "mart", Username: "ci", Options: map[string]string{"sslmode": "verify-full"}},
			want: "host=pg.internal port=5432 dbname=mart sslmode=verify-full user=ci",
		},
		{
			name: "only a database",
			cfg:  Config{Database: "scratch"},
			want: "host=localhost port=5432 dbname=scratch sslmode=disable",
		},
		{
			name:   "target params",
			cfg:    Config{Host: "db", Port: 5433, Database: "analytics"},
			params: PostgresParams{ApplicationName: "leapmodel", ConnectTimeout: 5},
			want:   "host=db port=5433 dbname=analytics sslmode=disable application_name=leapmodel connect_timeout=5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPostgresDSN(tt.cfg, tt.params))
		})
	}
}
