// Package persistence contains the default [domain.Persistence]
// implementation, an append-only journal of committed transactions.
//
// Each transaction is appended as its records followed by a commit marker.
// When loading, records of transactions without a marker are discarded, so a
// crash in the middle of an append never exposes a partial transaction.
package persistence

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/dolmen-go/contextio"
	"go.uber.org/zap"
	"tlog.app/go/errors"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/storage"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Default permissions of created files and directories.
const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

// maxLineSize bounds the size of a single journal record.
const maxLineSize = 64 << 20

// Persistence implements [domain.Persistence].
type Persistence struct {
	inMemoryOnly          bool
	filename              string
	corruptAlertThreshold float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	storage               domain.Storage
	log                   *zap.Logger

	// tornAt is the journal size before a failed append that was not
	// truncated away yet, or -1.
	tornAt int64
}

// NewPersistence returns a new implementation of [domain.Persistence].
func NewPersistence(options ...Option) (domain.Persistence, error) {
	p := Persistence{
		corruptAlertThreshold: 0.1,
		fileMode:              DefaultFileMode,
		dirMode:               DefaultDirMode,
		serializer:            serializer.NewSerializer(),
		deserializer:          deserializer.NewDeserializer(),
		storage:               storage.NewStorage(),
		log:                   zap.NewNop(),
		tornAt:                -1,
	}
	for _, option := range options {
		option(&p)
	}

	if !p.inMemoryOnly {
		if p.filename == "" {
			return nil, domain.ErrDatafileName{Name: p.filename, Reason: "empty filename"}
		}
		if strings.HasSuffix(p.filename, "~") {
			return nil, domain.ErrDatafileName{Name: p.filename, Reason: "cannot end with '~', reserved for backup files"}
		}
	}

	return &p, nil
}

// SetCorruptAlertThreshold implements [domain.Persistence].
func (p *Persistence) SetCorruptAlertThreshold(v float64) {
	p.corruptAlertThreshold = v
}

// PersistNewState implements [domain.Persistence]. All records are written
// with a single append.
func (p *Persistence) PersistNewState(ctx context.Context, records ...domain.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.inMemoryOnly || len(records) == 0 {
		return nil
	}

	toPersist := new(bytes.Buffer)
	wr := contextio.NewWriter(ctx, toPersist)
	for _, r := range records {
		b, err := p.serializer.Serialize(ctx, r)
		if err != nil {
			return err
		}
		if _, err = wr.Write(append(b, '\n')); err != nil {
			return err
		}
	}

	if err := p.undoFailedAppend(); err != nil {
		return err
	}
	size, err := p.storage.Size(p.filename)
	if err != nil {
		return errors.Wrap(err, "stat journal %s", p.filename)
	}
	if _, err := p.storage.AppendFile(p.filename, p.fileMode, toPersist.Bytes()); err != nil {
		p.tornAt = size
		if terr := p.undoFailedAppend(); terr != nil {
			p.log.Error("cannot undo failed journal append", zap.String("file", p.filename), zap.Error(terr))
		}
		return errors.Wrap(err, "append journal %s", p.filename)
	}
	return nil
}

// undoFailedAppend drops whatever a failed append left at the end of the
// journal, so the next append starts on its own line.
func (p *Persistence) undoFailedAppend() error {
	if p.tornAt < 0 {
		return nil
	}
	if err := p.storage.Truncate(p.filename, p.tornAt, p.fileMode); err != nil {
		return errors.Wrap(err, "truncate journal %s", p.filename)
	}
	p.tornAt = -1
	return nil
}

// TreatRawStream reads a journal and returns the records of every committed
// transaction in commit order.
func (p *Persistence) TreatRawStream(ctx context.Context, rawStream io.Reader) ([]domain.Record, error) {
	var (
		committed    []domain.Record
		pending      = make(map[string][]domain.Record)
		corruptItems int
		dataLength   int
		torn         bool
	)

	br := bufio.NewReader(contextio.NewReader(ctx, rawStream))
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// oversized line, read it whole
			rest, err2 := br.ReadBytes('\n')
			line, err = append(bytes.Clone(line), rest...), err2
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "read journal")
		}
		last := errors.Is(err, io.EOF)

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			if len(trimmed) > maxLineSize {
				corruptItems++
				dataLength++
			} else if r, derr := p.deserializer.Deserialize(ctx, trimmed); derr != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// An unterminated final line is an interrupted append.
				if last {
					torn = true
				} else {
					corruptItems++
					dataLength++
				}
			} else {
				dataLength++
				if r.Op == domain.OpCommit {
					committed = append(committed, pending[r.TxID]...)
					delete(pending, r.TxID)
				} else {
					pending[r.TxID] = append(pending[r.TxID], r)
				}
			}
		}
		if last {
			break
		}
	}

	if torn {
		p.log.Warn("discarding interrupted journal append", zap.String("file", p.filename))
	}
	if len(pending) > 0 {
		p.log.Warn("discarding uncommitted transactions", zap.Int("transactions", len(pending)))
	}
	if corruptItems > 0 {
		p.log.Warn("unreadable journal records", zap.Int("corrupt", corruptItems), zap.Int("total", dataLength))
	}

	if dataLength > 0 {
		rate := float64(corruptItems) / float64(dataLength)
		if rate > p.corruptAlertThreshold {
			return nil, domain.ErrCorruptFiles{
				CorruptionRate:        rate,
				CorruptItems:          corruptItems,
				DataLength:            dataLength,
				CorruptAlertThreshold: p.corruptAlertThreshold,
			}
		}
	}
	return committed, nil
}

// LoadDatabase implements [domain.Persistence].
func (p *Persistence) LoadDatabase(ctx context.Context) ([]domain.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if p.inMemoryOnly {
		return nil, nil
	}

	if err := p.storage.EnsureParentDirectoryExists(p.filename, p.dirMode); err != nil {
		return nil, errors.Wrap(err, "create directory for %s", p.filename)
	}
	if err := p.storage.EnsureDatafileIntegrity(p.filename, p.fileMode); err != nil {
		return nil, errors.Wrap(err, "check journal %s", p.filename)
	}

	f, err := p.storage.ReadFileStream(p.filename, p.fileMode)
	if err != nil {
		return nil, errors.Wrap(err, "open journal %s", p.filename)
	}
	defer f.Close()

	records, err := p.TreatRawStream(ctx, f)
	if err != nil {
		return nil, err
	}
	p.log.Info("journal loaded", zap.String("file", p.filename), zap.Int("records", len(records)))
	return records, nil
}

// PersistCachedDatabase implements [domain.Persistence].
func (p *Persistence) PersistCachedDatabase(ctx context.Context, records []domain.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.inMemoryOnly {
		return nil
	}

	lines := make([][]byte, 0, len(records))
	for _, r := range records {
		b, err := p.serializer.Serialize(ctx, r)
		if err != nil {
			return err
		}
		lines = append(lines, b)
	}

	if err := p.storage.CrashSafeWriteFileLines(p.filename, lines, p.dirMode, p.fileMode); err != nil {
		return errors.Wrap(err, "compact journal %s", p.filename)
	}
	p.tornAt = -1
	p.log.Info("journal compacted", zap.String("file", p.filename), zap.Int("records", len(lines)))
	return nil
}

// DropDatabase implements [domain.Persistence].
func (p *Persistence) DropDatabase(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.inMemoryOnly {
		return nil
	}
	exists, err := p.storage.Exists(p.filename)
	if err != nil || !exists {
		return err
	}
	return p.storage.Remove(p.filename)
}
