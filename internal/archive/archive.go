// Package archive keeps the entities produced by streams in a sqlite (or libsql) database so
// runs can be inspected after the fact.
package archive

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"xstream-backend/internal/entities"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

const (
	kindPost    = "post"
	kindAccount = "account"
)

type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and makes sure the schema exists. `libsql://`, `http://`
// and `https://` urls go through the libsql client, anything else is a local sqlite file
// (or `:memory:`).
func Open(ctx context.Context, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	if isRemote(dsn) {
		db, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers anyway and every `:memory:` connection is its own database
		db.SetMaxOpenConns(1)
	}
	store, err := NewStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func isRemote(dsn string) bool {
	for _, prefix := range []string{"libsql://", "http://", "https://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

// NewStore wraps an already open database, creating the tables that are missing.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	// the remote libsql protocol runs one statement per request
	for _, statement := range strings.Split(Schema, ";") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, statement)
		if err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type Run struct {
	ID      string
	Command string
	Started time.Time
}

// BeginRun records the start of a run, every entity saved afterwards is attached to it.
func (s *Store) BeginRun(ctx context.Context, command string) (Run, error) {
	run := Run{
		ID:      uuid.NewString(),
		Command: command,
		Started: time.Now().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(
		ctx,
		"insert into run(id, command, started_at) values (?, ?, ?)",
		run.ID, run.Command, run.Started.Unix(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Runs lists every recorded run, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "select id, command, started_at from run order by started_at desc, rowid desc")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var started int64
		err := rows.Scan(&run.ID, &run.Command, &started)
		if err != nil {
			return nil, err
		}
		run.Started = time.Unix(started, 0)
		out = append(out, run)
	}
	return out, rows.Err()
}

func encode(e entities.Exporter) (string, []byte, error) {
	text, err := entities.JSON(e)
	if err != nil {
		return "", nil, fmt.Errorf("json: %w", err)
	}
	pb, err := entities.ToProto(e)
	if err != nil {
		return "", nil, fmt.Errorf("proto: %w", err)
	}
	blob, err := proto.Marshal(pb)
	if err != nil {
		return "", nil, fmt.Errorf("proto marshal: %w", err)
	}
	return text, blob, nil
}

func attach(ctx context.Context, tx *sql.Tx, runID, kind, idStr string) error {
	_, err := tx.ExecContext(
		ctx,
		`insert into run_entity(run_id, kind, id_str, position)
		values (?, ?, ?, (select count(*) from run_entity where run_id = ? and kind = ?))
		on conflict do nothing`,
		runID, kind, idStr, runID, kind,
	)
	return err
}

// SavePost upserts a post and attaches it to the run.
func (s *Store) SavePost(ctx context.Context, runID string, post entities.Post) error {
	text, blob, err := encode(post)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var created any
	if !post.Date.IsZero() {
		created = post.Date.Unix()
	}
	_, err = tx.ExecContext(
		ctx,
		`insert into post(id_str, id, author_id_str, created_at, json, proto)
		values (?, ?, ?, ?, ?, ?)
		on conflict(id_str) do update set
			author_id_str = excluded.author_id_str,
			created_at = excluded.created_at,
			json = excluded.json,
			proto = excluded.proto`,
		post.IDStr, post.ID, post.Author.IDStr, created, text, blob,
	)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", post.IDStr, err)
	}
	err = attach(ctx, tx, runID, kindPost, post.IDStr)
	if err != nil {
		return fmt.Errorf("attach post %s: %w", post.IDStr, err)
	}
	return tx.Commit()
}

// SaveAccount upserts an account and attaches it to the run.
func (s *Store) SaveAccount(ctx context.Context, runID string, account entities.Account) error {
	text, blob, err := encode(account)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`insert into account(id_str, id, username, json, proto)
		values (?, ?, ?, ?, ?)
		on conflict(id_str) do update set
			username = excluded.username,
			json = excluded.json,
			proto = excluded.proto`,
		account.IDStr, account.ID, account.Username, text, blob,
	)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", account.IDStr, err)
	}
	err = attach(ctx, tx, runID, kindAccount, account.IDStr)
	if err != nil {
		return fmt.Errorf("attach account %s: %w", account.IDStr, err)
	}
	return tx.Commit()
}

func (s *Store) exported(ctx context.Context, table, kind, runID string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(
		ctx,
		fmt.Sprintf(
			`select t.json from run_entity re
			join %s t on t.id_str = re.id_str
			where re.run_id = ? and re.kind = ?
			order by re.position`,
			table,
		),
		runID, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var text string
		err := rows.Scan(&text)
		if err != nil {
			return nil, err
		}
		// numbers stay json.Number so 64 bit ids survive the trip
		decoder := json.NewDecoder(bytes.NewBufferString(text))
		decoder.UseNumber()
		var obj map[string]any
		err = decoder.Decode(&obj)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

// Posts returns the exported form of the posts of a run, in the order they were saved.
func (s *Store) Posts(ctx context.Context, runID string) ([]map[string]any, error) {
	return s.exported(ctx, "post", kindPost, runID)
}

// Accounts returns the exported form of the accounts of a run, in the order they were saved.
func (s *Store) Accounts(ctx context.Context, runID string) ([]map[string]any, error) {
	return s.exported(ctx, "account", kindAccount, runID)
}

// KnownPost reports whether a post was saved by any run.
func (s *Store) KnownPost(ctx context.Context, idStr string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "select count(*) from post where id_str = ?", idStr).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PostProto returns the protobuf form of a saved post.
func (s *Store) PostProto(ctx context.Context, idStr string) (*structpb.Struct, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "select proto from post where id_str = ?", idStr).Scan(&blob)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	err = proto.Unmarshal(blob, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
