package storage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripplanner/internal/generate"
	"github.com/neexbeast/tripplanner/internal/storage"
	"github.com/neexbeast/tripplanner/internal/trip"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *int:
			*v = row[i].(int)
		case *string:
			*v = row[i].(string)
		case *[]byte:
			if row[i] == nil {
				*v = nil
			} else {
				*v = row[i].([]byte)
			}
		case **time.Time:
			if row[i] == nil {
				*v = nil
			} else {
				t := row[i].(time.Time)
				*v = &t
			}
		case *time.Time:
			*v = row[i].(time.Time)
		}
	}
	return nil
}

// ---- mock MigrationPool ----

type mockMigrationPool struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockMigrationPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.beginFn(ctx)
}

// mockTx is a minimal pgx.Tx implementation for testing migrations.
type mockTx struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) Commit(ctx context.Context) error   { return t.commitFn(ctx) }
func (t *mockTx) Rollback(ctx context.Context) error { return t.rollbackFn(ctx) }

// pgx.Tx has many more methods; stub them all out.
func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *mockTx) Conn() *pgx.Conn { return nil }

// ---- helpers ----

func writeSQLFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

var created = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

// tripRow fills the scan targets of one trip row.
func tripRow(id string, selections, plan []byte) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = id
		*dest[1].(*string) = "ana@example.com"
		*dest[2].(*[]byte) = selections
		*dest[3].(*[]byte) = plan
		*dest[4].(*string) = "planned"
		*dest[5].(*time.Time) = created
		return nil
	}
}

// ---- GetTrip tests ----

func TestGetTrip_Found(t *testing.T) {
	var capturedID any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			capturedID = args[0]
			return &fakeRow{scanFn: tripRow("t1", []byte(`{"locationInfo": {"name": "Paris"}}`), []byte(`"{}"`))}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	rec, err := repo.GetTrip(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "t1", capturedID)
	assert.Equal(t, "ana@example.com", rec.OwnerEmail)
	assert.JSONEq(t, `{"locationInfo": {"name": "Paris"}}`, string(rec.Selections))
	assert.Equal(t, `"{}"`, string(rec.AiPlan))
	assert.Equal(t, created, rec.CreatedAt)
}

func TestGetTrip_NullPlan(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: tripRow("t1", []byte(`{}`), nil)}
		},
	}

	rec, err := storage.NewRepositoryWithQuerier(q).GetTrip(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, rec.AiPlan)
}

func TestGetTrip_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	rec, err := storage.NewRepositoryWithQuerier(q).GetTrip(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetTrip_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return fmt.Errorf("connection reset") }}
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).GetTrip(context.Background(), "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying trip")
}

// ---- ListTripsByOwner tests ----

func TestListTripsByOwner_Found(t *testing.T) {
	var capturedArgs []any
	rows := &fakeRows{
		rows: [][]any{
			{"t2", "ana@example.com", []byte(`"{\"locationInfo\": {}}"`), nil, "planned", created},
			{"t1", "ana@example.com", []byte(`{}`), []byte(`{"itinerary": {}}`), "planned", created},
		},
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
			capturedArgs = args
			return rows, nil
		},
	}

	records, err := storage.NewRepositoryWithQuerier(q).ListTripsByOwner(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []any{"ana@example.com"}, capturedArgs)
	assert.Equal(t, "t2", records[0].ID)
	assert.Nil(t, records[0].AiPlan)
	assert.JSONEq(t, `{"itinerary": {}}`, string(records[1].AiPlan))
}

func TestListTripsByOwner_Empty(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return &fakeRows{}, nil },
	}

	records, err := storage.NewRepositoryWithQuerier(q).ListTripsByOwner(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestListTripsByOwner_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("query failed")
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListTripsByOwner(context.Background(), "a@b.c")
	require.Error(t, err)
}

func TestListTripsByOwner_ScanError(t *testing.T) {
	rows := &fakeRows{
		rows:    [][]any{{"t1", "a@b.c", []byte(`{}`), nil, "planned", created}},
		scanErr: fmt.Errorf("scan failed"),
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListTripsByOwner(context.Background(), "a@b.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestListTripsByOwner_RowsErr(t *testing.T) {
	rows := &fakeRows{rowErr: fmt.Errorf("rows iteration error")}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListTripsByOwner(context.Background(), "a@b.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

// ---- PutTrip tests ----

func TestPutTrip_Success(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			capturedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	err := storage.NewRepositoryWithQuerier(q).PutTrip(context.Background(), trip.RawRecord{
		ID:         "t1",
		OwnerEmail: "ana@example.com",
		Selections: json.RawMessage(`{"budget": "Cheap"}`),
		CreatedAt:  created,
	})
	require.NoError(t, err)
	require.Len(t, capturedArgs, 6)
	assert.Equal(t, "t1", capturedArgs[0])
	assert.Equal(t, []byte(`{"budget": "Cheap"}`), capturedArgs[2])
	assert.Nil(t, capturedArgs[3], "absent plan is stored as NULL")
	assert.Equal(t, trip.StatusPlanned, capturedArgs[4])
}

func TestPutTrip_RequiresSelections(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			t.Fatal("exec must not be called")
			return pgconn.CommandTag{}, nil
		},
	}

	err := storage.NewRepositoryWithQuerier(q).PutTrip(context.Background(), trip.RawRecord{ID: "t1"})
	require.Error(t, err)
}

func TestPutTrip_DBError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	err := storage.NewRepositoryWithQuerier(q).PutTrip(context.Background(), trip.RawRecord{ID: "t1", Selections: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing trip")
}

// ---- location guide tests ----

func TestGetLocation_Found(t *testing.T) {
	dataJSON, err := json.Marshal(generate.LocationDetails{Name: "Paris", Country: "France", Introduction: "City of Light"})
	require.NoError(t, err)

	var capturedKey any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			capturedKey = args[0]
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*[]byte) = dataJSON
				return nil
			}}
		},
	}

	details, err := storage.NewRepositoryWithQuerier(q).GetLocation(context.Background(), "Paris", "France")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "paris_france", capturedKey)
	assert.Equal(t, "City of Light", details.Introduction.String())
}

func TestGetLocation_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	details, err := storage.NewRepositoryWithQuerier(q).GetLocation(context.Background(), "Atlantis", "")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestGetLocation_BadJSON(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*[]byte) = []byte("not-valid-json")
				return nil
			}}
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).GetLocation(context.Background(), "Paris", "France")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestUpsertLocation_Success(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			capturedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	err := storage.NewRepositoryWithQuerier(q).UpsertLocation(context.Background(), &generate.LocationDetails{Name: "Rome", Country: "Italy"})
	require.NoError(t, err)
	require.Len(t, capturedArgs, 4)
	assert.Equal(t, "rome_italy", capturedArgs[0])
	assert.Equal(t, "Rome", capturedArgs[1])
	assert.Equal(t, "Italy", capturedArgs[2])
}

func TestUpsertLocation_DBError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	err := storage.NewRepositoryWithQuerier(q).UpsertLocation(context.Background(), &generate.LocationDetails{Name: "Rome"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting location guide")
}

// ---- NewRepository ----

func TestNewRepository_NotNil(t *testing.T) {
	repo := storage.NewRepository(nil)
	assert.NotNil(t, repo)
}

// ---- RunMigrations tests ----

func TestRunMigrations_MissingDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, "/nonexistent/dir")
	require.Error(t, err)
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
}

func TestRunMigrations_Success(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.NoError(t, err)
}

func TestRunMigrations_BeginError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return nil, fmt.Errorf("cannot begin") },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing migration")
}

func TestRunMigrations_ExecError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "INVALID SQL;")

	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("syntax error")
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
}

func TestRunMigrations_CommitError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return fmt.Errorf("commit failed") },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
}

func TestRunMigrations_SortsFilesLexicographically(t *testing.T) {
	dir := t.TempDir()
	var order []string
	writeSQLFile(t, dir, "003_c.sql", "SELECT 3;")
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "SELECT 2;")

	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			order = append(order, sql)
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, "SELECT 1;", order[0])
	assert.Equal(t, "SELECT 2;", order[1])
	assert.Equal(t, "SELECT 3;", order[2])
}

func TestRunMigrationsFS_SkipsNonSQL(t *testing.T) {
	var execs int
	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			execs++
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	fsys := fstest.MapFS{
		"001_a.sql":  {Data: []byte("SELECT 1;")},
		"README.md":  {Data: []byte("docs")},
		"sub/02.sql": {Data: []byte("SELECT 2;")},
	}

	require.NoError(t, storage.RunMigrationsFS(context.Background(), pool, fsys))
	assert.Equal(t, 1, execs)
}

func TestRunMigrations_RepositoryMigrations(t *testing.T) {
	var stmts []string
	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			stmts = append(stmts, sql)
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	require.NoError(t, storage.RunMigrations(context.Background(), pool, filepath.Join("..", "..", "migrations")))
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS trips")
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS location_details")
}

// ---- Connect tests ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable")
	require.Error(t, err)
}
