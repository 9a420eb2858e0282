package sim

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

// greptimeClient is the slice of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// greptimeWriteTimeout bounds one ingest round trip.
const greptimeWriteTimeout = 10 * time.Second

// GreptimeDBWriter writes lifecycle records to GreptimeDB via the
// ingester client. The table is auto-created on first write.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

// NewGreptimeDBWriter creates a writer for the given endpoint
// (host or host:port, gRPC port 4001 by default) and database.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host := endpoint
	port := 4001
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{client: client, table: lifecycle.RecordTableName, timeout: greptimeWriteTimeout}, nil
}

// Write inserts a single record.
func (w *GreptimeDBWriter) Write(rec lifecycle.Record) error {
	return w.WriteBatch([]lifecycle.Record{rec})
}

// WriteBatch inserts multiple records.
func (w *GreptimeDBWriter) WriteBatch(recs []lifecycle.Record) error {
	if len(recs) == 0 {
		return nil
	}

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTagColumn("name", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("event", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("level", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("message", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("data", types.JSON); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	for _, r := range recs {
		data := "{}"
		if len(r.Data) > 0 {
			b, err := json.Marshal(r.Data)
			if err != nil {
				return err
			}
			data = string(b)
		}
		if err := tbl.AddRow(r.RunID, r.Name, string(r.Event), r.Level, r.Message, data, r.Timestamp); err != nil {
			return err
		}
	}

	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	_, err = w.client.Write(ctx, tbl)
	return err
}
