package database

import "testing"

func TestConnectionParameters_DriverName(t *testing.T) {
	tests := map[string]string{
		"":           DriverPgx,
		"pgx":        DriverPgx,
		"PostgreSQL": DriverPostgres,
		"pq":         DriverPostgres,
		"postgres":   DriverPostgres,
		"sqlite3":    DriverSQLite,
		" sqlite ":   DriverSQLite,
	}
	for in, want := range tests {
		if got := (ConnectionParameters{Driver: in}).DriverName(); got != want {
			t.Errorf("DriverName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConnectionParameters_DSN(t *testing.T) {
	tests := []struct {
		name    string
		params  ConnectionParameters
		want    string
		wantErr bool
	}{
		{
			name:   "pgx full",
			params: ConnectionParameters{DBName: "shop", Host: "db.local", User: "alice", Port: "5433", Password: "secret"},
			want:   "dbname=shop host=db.local user=alice port=5433 password=secret",
		},
		{
			name:   "pgx skips empty fields",
			params: ConnectionParameters{DBName: "shop"},
			want:   "dbname=shop",
		},
		{
			name:   "password needing quotes",
			params: ConnectionParameters{DBName: "shop", Password: `it's a \secret`},
			want:   `dbname=shop password='it\'s a \\secret'`,
		},
		{
			name:   "lib/pq defaults sslmode",
			params: ConnectionParameters{Driver: "postgres", DBName: "shop"},
			want:   "dbname=shop sslmode=disable",
		},
		{
			name:   "explicit sslmode",
			params: ConnectionParameters{Driver: "postgres", DBName: "shop", SSLMode: "require"},
			want:   "dbname=shop sslmode=require",
		},
		{
			name:   "sqlite",
			params: ConnectionParameters{Driver: "sqlite", DBName: "/tmp/a.db"},
			want:   "file:/tmp/a.db?mode=rw&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		},
		{
			name:    "sqlite without path",
			params:  ConnectionParameters{Driver: "sqlite"},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			params:  ConnectionParameters{Driver: "oracle"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.params.DSN()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got DSN %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DSN() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnectionParameters_String(t *testing.T) {
	p := ConnectionParameters{DBName: "shop", User: "alice", Port: "5432", Password: "secret"}
	if got, want := p.String(), "alice@localhost:5432/shop"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (ConnectionParameters{Driver: "sqlite", DBName: "a.db"}).String(), "sqlite:a.db"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
