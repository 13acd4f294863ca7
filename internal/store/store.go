package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/harvestguard/harvestguard-go/internal/risk"
)

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// SQLiteStore persists all engine state in an embedded SQLite database with
// WAL mode. Use ":memory:" as the path for tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	// nowFunc stamps row timestamps. Injectable for tests.
	nowFunc func() time.Time

	batchStmts    batchStatements
	profileStmts  profileStatements
	cooldownStmts cooldownStatements
	flagStmts     flagStatements
}

// Statement groups, one per table.
type batchStatements struct {
	insert, listAll *sql.Stmt
}

type profileStatements struct {
	get, save *sql.Stmt
}

type cooldownStatements struct {
	get, set *sql.Stmt
}

type flagStatements struct {
	get, set *sql.Stmt
}

// NewStore opens the database at dbPath, applies migrations, and prepares
// all repeated statements.
func NewStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	logger.Info("opening engine state database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	if err := setPragmas(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger, nowFunc: time.Now}

	if err := s.prepareAllStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare statements: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("store: set pragma %s: %w", p.desc, err)
		}

		logger.Debug("pragma set", slog.String("pragma", p.desc))
	}

	return nil
}

// --- SQL query constants ---

const (
	sqlBatchColumns = `id, crop_type, weight_kg, harvest_date, division, upazila,
		union_name, storage_type, status, etcl_hours, risk_level, created_at, updated_at`

	sqlListBatches = `SELECT ` + sqlBatchColumns + ` FROM batches ORDER BY created_at`

	sqlInsertBatch = `INSERT INTO batches (` + sqlBatchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlGetProfile = `SELECT name, phone, nid, division, district, upazila, village, image, pin
		FROM profile WHERE id = 1`

	sqlSaveProfile = `INSERT INTO profile (id, name, phone, nid, division, district, upazila, village, image, pin)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, phone = excluded.phone,
			nid = excluded.nid, division = excluded.division, district = excluded.district,
			upazila = excluded.upazila, village = excluded.village, image = excluded.image,
			pin = excluded.pin`

	sqlGetCooldown = `SELECT last_sent_at FROM sms_cooldowns WHERE dedup_key = ?`

	sqlSetCooldown = `INSERT INTO sms_cooldowns (dedup_key, last_sent_at) VALUES (?, ?)
		ON CONFLICT (dedup_key) DO UPDATE SET last_sent_at = excluded.last_sent_at`

	sqlGetFlag = `SELECT value FROM app_flags WHERE key = ?`

	sqlSetFlag = `INSERT INTO app_flags (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
)

// prepareAllStatements prepares every repeated query up front so statement
// compilation errors surface at startup, not mid-cycle.
func (s *SQLiteStore) prepareAllStatements(ctx context.Context) error {
	prepared := []struct {
		dst  **sql.Stmt
		text string
	}{
		{&s.batchStmts.insert, sqlInsertBatch},
		{&s.batchStmts.listAll, sqlListBatches},
		{&s.profileStmts.get, sqlGetProfile},
		{&s.profileStmts.save, sqlSaveProfile},
		{&s.cooldownStmts.get, sqlGetCooldown},
		{&s.cooldownStmts.set, sqlSetCooldown},
		{&s.flagStmts.get, sqlGetFlag},
		{&s.flagStmts.set, sqlSetFlag},
	}

	for _, p := range prepared {
		stmt, err := s.db.PrepareContext(ctx, p.text)
		if err != nil {
			return fmt.Errorf("preparing %q: %w", p.text, err)
		}

		*p.dst = stmt
	}

	return nil
}

// --- Batches ---

// ListBatches returns the full persisted batch collection in creation order.
func (s *SQLiteStore) ListBatches(ctx context.Context) ([]HarvestBatch, error) {
	rows, err := s.batchStmts.listAll.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing batches: %w", err)
	}
	defer rows.Close()

	var batches []HarvestBatch

	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}

		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating batches: %w", err)
	}

	return batches, nil
}

// InsertBatch adds a new batch row. CreatedAt/UpdatedAt are stamped if unset.
func (s *SQLiteStore) InsertBatch(ctx context.Context, b HarvestBatch) error {
	now := s.nowFunc().UnixMilli()

	if b.CreatedAt == 0 {
		b.CreatedAt = now
	}

	if b.UpdatedAt == 0 {
		b.UpdatedAt = now
	}

	if _, err := s.batchStmts.insert.ExecContext(ctx, batchArgs(b)...); err != nil {
		return fmt.Errorf("store: inserting batch %s: %w", b.ID, err)
	}

	return nil
}

// ReplaceBatches replaces the entire batch collection in one transaction.
// Last write wins; callers serialize sweeps with their own mutex.
func (s *SQLiteStore) ReplaceBatches(ctx context.Context, batches []HarvestBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin replace tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM batches"); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: clearing batches: %w", err)
	}

	now := s.nowFunc().UnixMilli()

	for _, b := range batches {
		if b.CreatedAt == 0 {
			b.CreatedAt = now
		}

		b.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, sqlInsertBatch, batchArgs(b)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: writing batch %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit replace tx: %w", err)
	}

	s.logger.Debug("batch collection replaced", slog.Int("count", len(batches)))

	return nil
}

// batchArgs returns the insert arguments in sqlBatchColumns order.
func batchArgs(b HarvestBatch) []any {
	var hours any
	if b.EtclHours != nil {
		hours = *b.EtclHours
	}

	var tier any
	if b.RiskLevel != nil {
		tier = string(*b.RiskLevel)
	}

	return []any{
		b.ID, b.CropType, b.WeightKg, b.HarvestDate, b.Division, b.Upazila,
		b.Union, b.StorageType, string(b.Status), hours, tier, b.CreatedAt, b.UpdatedAt,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanBatch.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (HarvestBatch, error) {
	var (
		b     HarvestBatch
		hours sql.NullFloat64
		tier  sql.NullString
	)

	err := row.Scan(&b.ID, &b.CropType, &b.WeightKg, &b.HarvestDate, &b.Division,
		&b.Upazila, &b.Union, &b.StorageType, &b.Status, &hours, &tier,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return HarvestBatch{}, fmt.Errorf("store: scanning batch: %w", err)
	}

	if hours.Valid {
		h := hours.Float64
		b.EtclHours = &h
	}

	if tier.Valid {
		t := risk.Tier(tier.String)
		b.RiskLevel = &t
	}

	return b, nil
}

// --- Profile ---

// Profile returns the stored farmer profile, or nil when none exists.
func (s *SQLiteStore) Profile(ctx context.Context) (*FarmerProfile, error) {
	var p FarmerProfile

	err := s.profileStmts.get.QueryRowContext(ctx).Scan(&p.Name, &p.Phone, &p.NID,
		&p.Division, &p.District, &p.Upazila, &p.Village, &p.Image, &p.PIN)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("store: reading profile: %w", err)
	}

	return &p, nil
}

// SaveProfile upserts the single farmer profile row.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p FarmerProfile) error {
	_, err := s.profileStmts.save.ExecContext(ctx, p.Name, p.Phone, p.NID,
		p.Division, p.District, p.Upazila, p.Village, p.Image, p.PIN)
	if err != nil {
		return fmt.Errorf("store: saving profile: %w", err)
	}

	return nil
}

// --- SMS cooldowns ---

// LastSent returns the recorded send time for a dedup key, with ok=false
// when no send has been recorded.
func (s *SQLiteStore) LastSent(ctx context.Context, key string) (time.Time, bool, error) {
	var millis int64

	err := s.cooldownStmts.get.QueryRowContext(ctx, key).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}

	if err != nil {
		return time.Time{}, false, fmt.Errorf("store: reading cooldown %s: %w", key, err)
	}

	return time.UnixMilli(millis), true, nil
}

// RecordSent upserts the send timestamp for a dedup key.
func (s *SQLiteStore) RecordSent(ctx context.Context, key string, at time.Time) error {
	if _, err := s.cooldownStmts.set.ExecContext(ctx, key, at.UnixMilli()); err != nil {
		return fmt.Errorf("store: recording cooldown %s: %w", key, err)
	}

	return nil
}

// --- App flags ---

// Flag returns the value for an app flag key, with ok=false when unset.
func (s *SQLiteStore) Flag(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.flagStmts.get.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("store: reading flag %s: %w", key, err)
	}

	return value, true, nil
}

// SetFlag upserts an app flag.
func (s *SQLiteStore) SetFlag(ctx context.Context, key, value string) error {
	if _, err := s.flagStmts.set.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("store: setting flag %s: %w", key, err)
	}

	return nil
}
