package db

import (
	"database/sql"
	"database/sql/driver"
	"os"
	"os/exec"
	"testing"

	"campus-eats-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "localhost",
		DBUser:     "eats",
		DBPassword: "secret",
		DBName:     "campus_eats",
		DBPort:     "5432",
	}

	assert.Equal(t,
		"host=localhost user=eats password=secret dbname=campus_eats port=5432 sslmode=disable connect_timeout=5",
		buildDSN(cfg),
	)
}

func TestNewDatabase_InvalidDriver(t *testing.T) {
	db, err := newDatabaseWithDriver(&config.Config{}, "invalid_driver_name")

	assert.Nil(t, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to DB")
}

func TestNewDatabase_PingFailure(t *testing.T) {
	db, err := newDatabaseWithDriver(&config.Config{DBHost: "localhost"}, "mock_driver_unreachable")

	assert.Nil(t, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping DB")
}

func TestNewDatabase_Success(t *testing.T) {
	db, err := newDatabaseWithDriver(&config.Config{DBHost: "localhost"}, "mock_driver_success")
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, maxOpenConns, db.Stats().MaxOpenConnections)
}

func TestInitDB_Failure(t *testing.T) {
	// Runs the test binary as a subprocess: InitDB exits the process on failure.
	if os.Getenv("BE_CRASHER") == "1" {
		InitDB(&config.Config{DBHost: "127.0.0.1", DBPort: "1"})
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestInitDB_Failure")
	cmd.Env = append(os.Environ(), "BE_CRASHER=1")
	err := cmd.Run()

	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		return
	}
	t.Fatalf("process ran with err %v, want exit status 1", err)
}

// --- Mock drivers ---

type mockDriver struct {
	openErr error
}

func (m *mockDriver) Open(name string) (driver.Conn, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return &mockConn{}, nil
}

type mockConn struct{}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) { return &mockStmt{}, nil }
func (c *mockConn) Close() error                              { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                 { return nil, nil }

type mockStmt struct{}

func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

func init() {
	sql.Register("mock_driver_success", &mockDriver{})
	sql.Register("mock_driver_unreachable", &mockDriver{openErr: driver.ErrBadConn})
}
