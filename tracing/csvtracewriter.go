package tracing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/xid"
	"github.com/sarchlab/trafficsim/sim"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter is a hook that writes the trajectory of every vehicle into a
// CSV file, one row per vehicle per tick.
type CSVTraceWriter struct {
	tickTracker

	path  string
	roads RoadLister
	out   *csv.Writer
	file  *os.File

	rows       [][]string
	bufferSize int
}

// NewCSVTraceWriter creates a new CSVTraceWriter. Init must be called before
// the writer is used.
func NewCSVTraceWriter(path string, roads RoadLister) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		roads:      roads,
		bufferSize: 1000,
	}
}

// Init creates the csv file. It panics if the file already exists.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "trafficsim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	t.InitWithWriter(file)

	atexit.Register(func() {
		err := t.Close()
		if err != nil {
			panic(err)
		}
	})
}

// InitWithWriter makes the writer output into w instead of a file.
func (t *CSVTraceWriter) InitWithWriter(w io.Writer) {
	t.out = csv.NewWriter(w)

	header := []string{"Tick", "Road", "Vehicle", "Position", "Speed", "Lane"}
	err := t.out.Write(header)
	if err != nil {
		panic(err)
	}
	t.out.Flush()
}

// Path returns the path of the file without the extension.
func (t *CSVTraceWriter) Path() string {
	return t.path
}

// Func appends one row per vehicle after every tick.
func (t *CSVTraceWriter) Func(ctx sim.HookCtx) {
	t.observe(ctx)

	if ctx.Pos != sim.HookPosAfterTick {
		return
	}

	for _, r := range t.roads.Roads() {
		for _, v := range r.Vehicles() {
			t.rows = append(t.rows, []string{
				strconv.FormatUint(t.current, 10),
				r.Name(),
				v.ID,
				strconv.FormatFloat(v.Position, 'f', 6, 64),
				strconv.FormatFloat(v.Speed, 'f', 6, 64),
				strconv.Itoa(v.Lane),
			})
		}
	}

	if len(t.rows) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered rows.
func (t *CSVTraceWriter) Flush() {
	if t.out == nil {
		return
	}

	err := t.out.WriteAll(t.rows)
	if err != nil {
		panic(err)
	}

	t.rows = nil
}

// Close flushes and closes the file, if there is one.
func (t *CSVTraceWriter) Close() error {
	t.Flush()

	if t.file == nil {
		return nil
	}

	err := t.file.Close()
	t.file = nil

	return err
}
