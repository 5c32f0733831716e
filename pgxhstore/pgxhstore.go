// Package pgxhstore registers the hstore type with pgx connections, so that
// psqlx.Hstore values are encoded and decoded by pgx's hstore codec instead
// of as text.
//
//	config, err := pgxhstore.ParseConfig(os.Getenv("DBCONNSTR"))
//	if err != nil {
//		return err
//	}
//	pool, err := pgxpool.NewWithConfig(ctx, config)
package pgxhstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoHstore is returned by Register if the hstore extension is not
// installed in the database.
var ErrNoHstore = errors.New("hstore extension is not installed")

const typeQuery = `SELECT oid, typarray FROM pg_type WHERE typname = 'hstore'`

// Register adds the hstore type and its array type to the type map of conn.
// Calling it again on the same connection registers the same types again.
func Register(ctx context.Context, conn *pgx.Conn) error {
	var oid, arrayOID uint32
	err := conn.QueryRow(ctx, typeQuery).Scan(&oid, &arrayOID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoHstore
	}
	if err != nil {
		return fmt.Errorf("pgxhstore: %w", err)
	}
	m := conn.TypeMap()
	hstore := &pgtype.Type{Name: "hstore", OID: oid, Codec: pgtype.HstoreCodec{}}
	m.RegisterType(hstore)
	if arrayOID != 0 {
		m.RegisterType(&pgtype.Type{Name: "_hstore", OID: arrayOID, Codec: &pgtype.ArrayCodec{ElementType: hstore}})
	}
	return nil
}

// AfterConnect returns a pgxpool AfterConnect hook that registers hstore
// and then calls next, if not nil.
func AfterConnect(next func(context.Context, *pgx.Conn) error) func(context.Context, *pgx.Conn) error {
	return func(ctx context.Context, conn *pgx.Conn) error {
		if err := Register(ctx, conn); err != nil {
			return err
		}
		if next != nil {
			return next(ctx, conn)
		}
		return nil
	}
}

// ParseConfig is like pgxpool.ParseConfig but every new connection of the
// pool has hstore registered.
func ParseConfig(connString string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	config.AfterConnect = AfterConnect(config.AfterConnect)
	return config, nil
}
