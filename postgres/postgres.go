// Package postgres installs a seqid layout into Postgres and mirrors the
// decoding side as SQL functions, so ids stored as bigint can be taken apart
// in queries.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paraglidehq/seqid"
)

// Config holds the seqid bit layout as stored in the database.
type Config struct {
	Epoch          int64 // µs since the Unix epoch
	MicrosTenPower uint8
	UnusedBits     uint8
	NodeBits       uint8
	SeqBits        uint8
}

// DefaultConfig returns the layout of seqid.DefaultConfig.
// Use this unless you've customized the generator's epoch or bit widths.
func DefaultConfig() Config {
	cfg := seqid.DefaultConfig()
	layout, _ := cfg.Layout()
	return FromLayout(layout, cfg.Epoch)
}

// FromLayout converts a generator layout and epoch.
func FromLayout(l seqid.Layout, epoch time.Time) Config {
	return Config{
		Epoch:          epoch.UnixMicro(),
		MicrosTenPower: l.MicrosTenPower,
		UnusedBits:     l.UnusedBits,
		NodeBits:       l.NodeIDBits,
		SeqBits:        l.SequenceBits,
	}
}

// FromGenerator returns the config matching the ids g produces.
func FromGenerator(g *seqid.Generator) Config {
	return FromLayout(g.Layout(), g.Epoch())
}

// Layout validates the widths and derives the timestamp width.
func (c Config) Layout() (seqid.Layout, error) {
	return seqid.NewLayout(c.UnusedBits, c.NodeBits, c.SeqBits, c.MicrosTenPower)
}

// Computed values
func (c Config) TimeShift() uint8 { return c.NodeBits + c.SeqBits }
func (c Config) NodeMask() int64  { return int64(1)<<c.NodeBits - 1 }
func (c Config) SeqMask() int64   { return int64(1)<<c.SeqBits - 1 }

// TickMask is the timestamp mask, clipped to what a bigint can hold.
func (c Config) TickMask() int64 {
	bits := 64 - int(c.UnusedBits) - int(c.NodeBits) - int(c.SeqBits)
	if bits >= 63 {
		return math.MaxInt64
	}
	return int64(1)<<bits - 1
}

var ErrConfigMismatch = errors.New("seqid: database config does not match application config")

// Migrate runs the idempotent seqid migration with the given configuration.
// If the database already has a different configuration, returns ErrConfigMismatch.
func Migrate(ctx context.Context, db *sql.DB, cfg Config) error {
	if _, err := cfg.Layout(); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _seqid_config (
			id int PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			epoch bigint NOT NULL,
			micros_ten_power int NOT NULL,
			unused_bits int NOT NULL,
			node_bits int NOT NULL,
			seq_bits int NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("seqid: create config table: %w", err)
	}

	stored, err := GetConfig(ctx, db)
	switch {
	case err == nil:
		if stored != cfg {
			return fmt.Errorf("%w: db has %s, app has %s", ErrConfigMismatch, stored, cfg)
		}
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.ExecContext(ctx, `
			INSERT INTO _seqid_config (epoch, micros_ten_power, unused_bits, node_bits, seq_bits)
			VALUES ($1, $2, $3, $4, $5)`,
			cfg.Epoch, cfg.MicrosTenPower, cfg.UnusedBits, cfg.NodeBits, cfg.SeqBits)
		if err != nil {
			return fmt.Errorf("seqid: insert config: %w", err)
		}
	default:
		return err
	}

	if _, err := db.ExecContext(ctx, generateSQL(cfg)); err != nil {
		return fmt.Errorf("seqid: run migrations: %w", err)
	}
	return nil
}

// GetConfig reads the seqid configuration from the database.
func GetConfig(ctx context.Context, db *sql.DB) (Config, error) {
	var cfg Config
	var power, unused, nodeBits, seqBits int
	err := db.QueryRowContext(ctx,
		`SELECT epoch, micros_ten_power, unused_bits, node_bits, seq_bits FROM _seqid_config`,
	).Scan(&cfg.Epoch, &power, &unused, &nodeBits, &seqBits)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, err
	}
	if err != nil {
		return cfg, fmt.Errorf("seqid: read config: %w", err)
	}
	cfg.MicrosTenPower = uint8(power)
	cfg.UnusedBits = uint8(unused)
	cfg.NodeBits = uint8(nodeBits)
	cfg.SeqBits = uint8(seqBits)
	return cfg, nil
}

func (c Config) String() string {
	return fmt.Sprintf("epoch=%d micros_ten_power=%d unused_bits=%d node_bits=%d seq_bits=%d",
		c.Epoch, c.MicrosTenPower, c.UnusedBits, c.NodeBits, c.SeqBits)
}

func generateSQL(cfg Config) string {
	return fmt.Sprintf(`
-- Constants
CREATE OR REPLACE FUNCTION nil_seqid() RETURNS bigint LANGUAGE sql IMMUTABLE AS $$ SELECT 0::bigint; $$;
CREATE OR REPLACE FUNCTION is_nil_seqid(id bigint) RETURNS boolean LANGUAGE sql IMMUTABLE AS $$ SELECT id = 0; $$;

-- Extract components
CREATE OR REPLACE FUNCTION tick_from_seqid(id bigint)
  RETURNS bigint
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT (id >> %[1]d) & %[2]d;
$$;

CREATE OR REPLACE FUNCTION ts_from_seqid(id bigint)
  RETURNS timestamptz
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT to_timestamp((((id >> %[1]d) & %[2]d)::numeric * power(10::numeric, %[3]d) + %[4]d) / 1000000);
$$;

CREATE OR REPLACE FUNCTION node_from_seqid(id bigint)
  RETURNS bigint
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT (id >> %[5]d) & %[6]d;
$$;

CREATE OR REPLACE FUNCTION seq_from_seqid(id bigint)
  RETURNS bigint
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT id & %[7]d;
$$;

-- Base58 encoding/decoding
CREATE OR REPLACE FUNCTION b58_to_seqid(encoded_id varchar(11))
  RETURNS bigint
  LANGUAGE plpgsql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
DECLARE
  alphabet char(58) := '123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz';
  c char(1);
  p int;
  result bigint := 0;
BEGIN
  FOR i IN 1..char_length(encoded_id) LOOP
    c := substring(encoded_id FROM i FOR 1);
    p := position(c IN alphabet);
    IF p = 0 THEN
      RAISE EXCEPTION 'Invalid base58 character: %%', c;
    END IF;
    result := (result * 58) + (p - 1);
  END LOOP;
  RETURN result;
END;
$$;

CREATE OR REPLACE FUNCTION seqid_to_b58(id bigint)
  RETURNS varchar(11)
  LANGUAGE plpgsql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
DECLARE
  alphabet char(58) := '123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz';
  result varchar(11) := '';
  remainder int;
BEGIN
  IF id = 0 THEN
    RETURN '1';
  END IF;
  WHILE id > 0 LOOP
    remainder := (id %% 58)::int;
    result := substring(alphabet FROM remainder + 1 FOR 1) || result;
    id := id / 58;
  END LOOP;
  RETURN result;
END;
$$;

-- Base64 encoding/decoding, big-endian like seqid.ID.Bytes
CREATE OR REPLACE FUNCTION b64_to_seqid(encoded_id varchar(12))
  RETURNS bigint
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT ('x' || encode(decode(encoded_id, 'base64'), 'hex'))::bit(64)::bigint;
$$;

CREATE OR REPLACE FUNCTION seqid_to_b64(id bigint)
  RETURNS varchar(12)
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT encode(decode(lpad(to_hex(id), 16, '0'), 'hex'), 'base64');
$$;

-- Hex encoding/decoding
CREATE OR REPLACE FUNCTION hex_to_seqid(encoded_id text)
  RETURNS bigint
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT ('x' || lpad(encoded_id, 16, '0'))::bit(64)::bigint;
$$;

CREATE OR REPLACE FUNCTION seqid_to_hex(id bigint)
  RETURNS text
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT to_hex(id);
$$;
`,
		cfg.TimeShift(),    // 1: tick shift
		cfg.TickMask(),     // 2: tick mask
		cfg.MicrosTenPower, // 3: µs per tick as a power of ten
		cfg.Epoch,          // 4: epoch in µs
		cfg.SeqBits,        // 5: node shift
		cfg.NodeMask(),     // 6: node mask
		cfg.SeqMask(),      // 7: sequence mask
	)
}
