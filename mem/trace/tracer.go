// Package trace follows the cache blocks an access trace touches, and
// records those accesses to a log or a database.
package trace

import (
	"log"

	"github.com/sarchlab/cachetile/datarecording"
)

// AccessTable is the table the database tracer writes to.
const AccessTable = "block_accesses"

// Access is one traced read, resolved against a cache geometry.
type Access struct {
	Addr     uint64
	Size     int
	Block    uint64
	Set      uint64
	NewBlock bool
}

// accessEntry represents one access in the database
type accessEntry struct {
	Layout   string
	Order    string
	Seq      int
	Address  int64
	ByteSize int
	Block    int64
	SetIndex int64
	NewBlock bool
}

// A Tracer receives accesses. SetScope labels the accesses that follow it.
type Tracer interface {
	SetScope(layout, order string)
	TraceAccess(a Access)
}

// A tracer writes every access to a logger.
type tracer struct {
	logger *log.Logger
	layout string
	order  string
}

// NewTracer creates a Tracer that prints accesses to logger.
func NewTracer(logger *log.Logger) Tracer {
	t := new(tracer)
	t.logger = logger

	return t
}

func (t *tracer) SetScope(layout, order string) {
	t.layout = layout
	t.order = order
}

func (t *tracer) TraceAccess(a Access) {
	what := "same"
	if a.NewBlock {
		what = "new"
	}

	t.logger.Printf("%s, %s, 0x%x, %d, block 0x%x, set %d, %s\n",
		t.layout, t.order, a.Addr, a.Size, a.Block, a.Set, what)
}

// A dbTracer records accesses into a database using the data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	layout       string
	order        string
	seq          int
}

// NewDBTracer creates a Tracer that stores accesses in dataRecorder.
func NewDBTracer(dataRecorder datarecording.DataRecorder) (Tracer, error) {
	t := &dbTracer{dataRecorder: dataRecorder}

	err := t.dataRecorder.CreateTable(AccessTable, accessEntry{})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (t *dbTracer) SetScope(layout, order string) {
	t.layout = layout
	t.order = order
	t.seq = 0
}

// TraceAccess buffers the access. Errors of the recorder are fatal, as the
// tracer has no way to report them.
func (t *dbTracer) TraceAccess(a Access) {
	entry := accessEntry{
		Layout:   t.layout,
		Order:    t.order,
		Seq:      t.seq,
		Address:  int64(a.Addr),
		ByteSize: a.Size,
		Block:    int64(a.Block),
		SetIndex: int64(a.Set),
		NewBlock: a.NewBlock,
	}
	t.seq++

	err := t.dataRecorder.InsertData(AccessTable, entry)
	if err != nil {
		log.Panic(err)
	}
}
