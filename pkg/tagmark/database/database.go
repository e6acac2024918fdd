package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// Bound parameter ceilings per statement. sqlite builds older than 3.32
	// stop at 999, which is what we assume for every sqlite build.
	sqliteParamLimit   = 999
	postgresParamLimit = 65535
)

// sqliteDriverName is go-sqlite3 with lower() replaced by a Unicode-aware
// version; the builtin only folds ASCII.
const sqliteDriverName = "sqlite3_tagmark"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
}

var DB *gorm.DB

// Options controls how Connect opens the database
type Options struct {
	Driver string
	Path   string // sqlite file
	DSN    string // postgres connection string
	Debug  bool
}

// Connect initializes the database connection.
// sqlite runs in WAL mode with foreign keys on; postgres is available for
// deployments that already run one.
func Connect(opts Options) error {
	db, err := Open(opts)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open returns a new connection without touching the package-level DB
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if !opts.Debug {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	switch opts.Driver {
	case "", DriverSQLite:
		return gorm.Open(sqlite.New(sqlite.Config{
			DriverName: sqliteDriverName,
			DSN:        SQLiteDSN(opts.Path),
		}), cfg)
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		return gorm.Open(postgres.Open(opts.DSN), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// SQLiteDSN builds the go-sqlite3 connection string for a database file
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}

// ParamLimit returns the maximum number of bound parameters a single
// statement may carry on the given connection.
func ParamLimit(db *gorm.DB) int {
	if db != nil && db.Dialector != nil && db.Dialector.Name() == DriverPostgres {
		return postgresParamLimit
	}
	return sqliteParamLimit
}
