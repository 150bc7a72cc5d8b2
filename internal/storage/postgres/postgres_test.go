package postgres

import "testing"

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/budget?sslmode=disable":   "pgx5://u:p@localhost:5432/budget?sslmode=disable",
		"postgresql://u:p@localhost:5432/budget?sslmode=disable": "pgx5://u:p@localhost:5432/budget?sslmode=disable",
		"pgx5://already/converted":                               "pgx5://already/converted",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}
