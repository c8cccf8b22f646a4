package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// NewRecorder picks a backend from target. A clickhouse:// DSN records into
// ClickHouse; anything else names a SQLite file.
func NewRecorder(target string) (DataRecorder, error) {
	if strings.HasPrefix(target, "clickhouse://") {
		return NewClickHouse(target)
	}

	return New(target)
}

// NewClickHouse connects to the ClickHouse server named by dsn, for example
// clickhouse://localhost:9000/bench?username=default.
func NewClickHouse(dsn string) (DataRecorder, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	opts.DialTimeout = 30 * time.Second
	opts.Settings = clickhouse.Settings{"max_execution_time": 60}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	w := newClickHouseWriter(conn)

	atexit.Register(func() { _ = w.Flush() })

	return w, nil
}

type clickHouseWriter struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*table
	entryCount int
}

func newClickHouseWriter(conn clickhouse.Conn) *clickHouseWriter {
	return &clickHouseWriter{
		conn:      conn,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Uint:
		return "UInt64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("kind %s has no column type", kind))
	}
}

func clickHouseCreateSQL(tableName string, sampleEntry any) string {
	t := reflect.TypeOf(sampleEntry)

	columns := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		columns = append(columns,
			f.Name+" "+clickHouseType(f.Type.Kind()))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		tableName, strings.Join(columns, ",\n\t"), t.Field(0).Name)
}

// clickHouseValues widens int and uint to the 64-bit column types.
func clickHouseValues(entry any) []any {
	values := structs.Values(entry)
	for i, v := range values {
		switch v := v.(type) {
		case int:
			values[i] = int64(v)
		case uint:
			values[i] = uint64(v)
		}
	}

	return values
}

func (w *clickHouseWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	if reflect.TypeOf(sampleEntry).NumField() == 0 {
		return fmt.Errorf("%T has no fields: %w", sampleEntry, ErrInvalidEntry)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("%s: %w", tableName, ErrTableExists)
	}

	createSQL := clickHouseCreateSQL(tableName, sampleEntry)
	if err := w.conn.Exec(context.Background(), createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	w.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}

	return nil
}

func (w *clickHouseWriter) InsertData(tableName string, entry any) error {
	w.mu.Lock()

	table, exists := w.tables[tableName]
	if !exists {
		w.mu.Unlock()
		return fmt.Errorf("%s: %w", tableName, ErrNoSuchTable)
	}

	if reflect.TypeOf(entry) != table.structType {
		w.mu.Unlock()
		return fmt.Errorf("%T into %s: %w", entry, tableName, ErrEntryMismatch)
	}

	table.entries = append(table.entries, entry)
	w.entryCount++
	full := w.entryCount >= w.batchSize

	w.mu.Unlock()

	if full {
		return w.Flush()
	}

	return nil
}

func (w *clickHouseWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tables := make([]string, 0, len(w.tables))
	for name := range w.tables {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

func (w *clickHouseWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.entryCount == 0 {
		return nil
	}

	ctx := context.Background()

	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		if err := w.sendBatch(ctx, tableName, table.entries); err != nil {
			return err
		}

		w.entryCount -= len(table.entries)
		table.entries = nil
	}

	return nil
}

func (w *clickHouseWriter) sendBatch(
	ctx context.Context,
	tableName string,
	entries []any,
) error {
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
	if err != nil {
		return fmt.Errorf("prepare batch for %s: %w", tableName, err)
	}

	for _, entry := range entries {
		if err := batch.Append(clickHouseValues(entry)...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to %s: %w", tableName, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch for %s: %w", tableName, err)
	}

	return nil
}

func (w *clickHouseWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	return w.conn.Close()
}
