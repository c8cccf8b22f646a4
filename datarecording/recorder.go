// Package datarecording stores flat records in SQLite or ClickHouse.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Errors returned by the recorder.
var (
	ErrFileExists    = errors.New("recording file already exists")
	ErrInvalidEntry  = errors.New("entry is invalid")
	ErrNoSuchTable   = errors.New("table does not exist")
	ErrTableExists   = errors.New("table already exists")
	ErrEntryMismatch = errors.New("entry type does not match table")
)

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables, sorted.
	ListTables() []string

	// Flush writes all buffered entries in one transaction.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder that writes to <path>.sqlite3. An empty path
// picks a unique name.
func New(path string) (DataRecorder, error) {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	if err := w.init(); err != nil {
		return nil, err
	}

	atexit.Register(func() { _ = w.Flush() })

	return w, nil
}

// NewWithDB creates a DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	return &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

type table struct {
	structType reflect.Type
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

func (w *sqliteWriter) init() error {
	if w.dbName == "" {
		w.dbName = "cachetile_recording_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		return fmt.Errorf("%s: %w", filename, ErrFileExists)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return err
	}

	w.DB = db

	return nil
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%T is not a struct: %w", entry, ErrInvalidEntry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s is unexported: %w",
				field.Name, ErrInvalidEntry)
		}

		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("field %s has kind %s: %w",
				field.Name, field.Type.Kind(), ErrInvalidEntry)
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("%s: %w", tableName, ErrTableExists)
	}

	n := structs.Names(sampleEntry)
	fields := strings.Join(n, ", \n\t")

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`

	if _, err := w.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}

	return nil
}

func (w *sqliteWriter) InsertData(tableName string, entry any) error {
	table, exists := w.tables[tableName]
	if !exists {
		return fmt.Errorf("%s: %w", tableName, ErrNoSuchTable)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("%T into %s: %w", entry, tableName, ErrEntryMismatch)
	}

	table.entries = append(table.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		return w.Flush()
	}

	return nil
}

func (w *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(w.tables))
	for table := range w.tables {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (w *sqliteWriter) Flush() error {
	if w.entryCount == 0 {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return err
	}

	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		if err := insertAll(tx, tableName, table.entries); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, table := range w.tables {
		table.entries = nil
	}

	w.entryCount = 0

	return nil
}

func insertAll(tx *sql.Tx, tableName string, entries []any) error {
	n := structs.Names(entries[0])
	for i := range n {
		n[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(n, ", ") + ")"

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		_, err := stmt.Exec(structs.Values(entry)...)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", tableName, err)
		}
	}

	return nil
}

func (w *sqliteWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	return w.DB.Close()
}
