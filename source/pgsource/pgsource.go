//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package pgsource provides a directory source backed by a postgres table:
//
//	create table endpoints (
//	    service_id     text        not null,
//	    host           text        not null,
//	    port           int         not null,
//	    transport      text        not null default 'tcp',
//	    timeout_ms     bigint      not null default 0,
//	    weight         int         not null default 0,
//	    weight_tier    int         not null default 0,
//	    declared_group int         not null default 0,
//	    assigned_group int         not null default 0,
//	    station        text        not null default '',
//	    set_id         text        not null default '',
//	    active         bool        not null default true,
//	    updated_at     timestamptz not null default now(),
//	    primary key (service_id, host, port, transport)
//	);
package pgsource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
	"trpc.group/trpc-go/trpc-registry/source"
)

// Name is the source name.
const Name = "postgres"

// DefaultTable is the endpoint table name.
const DefaultTable = "endpoints"

var columns = []string{
	"service_id", "host", "port", "transport", "timeout_ms", "weight", "weight_tier",
	"declared_group", "assigned_group", "station", "set_id", "active", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Querier runs a query. *pgxpool.Pool and *pgx.Conn implement it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source loads the directory from the endpoint table. Incremental loads re-read
// the identifiers having a row updated since the previous load. Deleted rows are
// only noticed by full loads.
type Source struct {
	db    Querier
	table string

	mu    sync.Mutex
	since time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithTable sets the endpoint table name.
func WithTable(name string) Option {
	return func(s *Source) {
		if name != "" {
			s.table = name
		}
	}
}

// New creates a Source querying db.
func New(db Querier, opts ...Option) *Source {
	s := &Source{db: db, table: DefaultTable}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements source.Source.
func (s *Source) Name() string {
	return Name
}

// Load implements source.Source.
func (s *Source) Load(ctx context.Context, full bool) (*directory.Update, error) {
	s.mu.Lock()
	since := s.since
	s.mu.Unlock()
	if full || since.IsZero() {
		return s.loadAll(ctx)
	}
	return s.loadChanged(ctx, since)
}

func (s *Source) loadAll(ctx context.Context) (*directory.Update, error) {
	sql, args, err := psql.Select(columns...).From(s.table).
		OrderBy("service_id", "host", "port").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to create db request: %w", err)
	}
	u := &directory.Update{Full: true, Active: directory.Table{}, Inactive: directory.Table{}}
	if err := s.scan(ctx, u, sql, args...); err != nil {
		return nil, err
	}
	u.Sets = source.SetsFromEndpoints(u.Active, u.Inactive)
	return u, nil
}

func (s *Source) loadChanged(ctx context.Context, since time.Time) (*directory.Update, error) {
	sql, args, err := psql.Select("service_id").Distinct().From(s.table).
		Where(squirrel.Gt{"updated_at": since}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to create db request: %w", err)
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan service id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read changed ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	sql, args, err = psql.Select(columns...).From(s.table).
		Where(squirrel.Eq{"service_id": ids}).
		OrderBy("service_id", "host", "port").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to create db request: %w", err)
	}
	u := &directory.Update{Active: directory.Table{}, Inactive: directory.Table{}}
	for _, id := range ids {
		u.Active[id] = []registry.Endpoint{}
		u.Inactive[id] = []registry.Endpoint{}
	}
	if err := s.scan(ctx, u, sql, args...); err != nil {
		return nil, err
	}
	u.Sets = source.SetsFromEndpoints(u.Active, u.Inactive)
	return u, nil
}

type row struct {
	id        string
	ep        registry.Endpoint
	timeoutMS int64
	tier      int
	active    bool
	updatedAt time.Time
}

func (s *Source) scan(ctx context.Context, u *directory.Update, sql string, args ...any) error {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var latest time.Time
	for rows.Next() {
		var (
			r         row
			transport string
		)
		err = rows.Scan(
			&r.id,
			&r.ep.Host,
			&r.ep.Port,
			&transport,
			&r.timeoutMS,
			&r.ep.Weight,
			&r.tier,
			&r.ep.DeclaredGroup,
			&r.ep.AssignedGroup,
			&r.ep.Station,
			&r.ep.Set,
			&r.active,
			&r.updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan endpoint: %w", err)
		}
		r.ep.Transport = registry.Transport(transport)
		r.ep.Timeout = time.Duration(r.timeoutMS) * time.Millisecond
		r.ep.WeightTier = registry.WeightTier(r.tier)
		if r.active {
			u.Active[r.id] = append(u.Active[r.id], r.ep)
		} else {
			u.Inactive[r.id] = append(u.Inactive[r.id], r.ep)
		}
		if r.updatedAt.After(latest) {
			latest = r.updatedAt
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read endpoints: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if latest.After(s.since) {
		s.since = latest
	}
	if !s.since.IsZero() {
		u.Revision = s.since.UnixMilli()
	}
	return nil
}
