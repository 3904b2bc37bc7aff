// Package backup takes encrypted snapshots of the SQLite database and keeps
// them in S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/store"
	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"
)

// ErrNotConfigured is returned by every operation when no bucket or
// passphrase is set.
var ErrNotConfigured = errors.New("backup not configured")

// s3Client is the subset of *s3.Client the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Prefix is prepended to every object key.
	Prefix string
}

type Config struct {
	S3            S3Config
	Passphrase    string
	RetentionDays int
}

// Configured reports whether backups can run at all.
func (c Config) Configured() bool {
	return c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != "" && c.Passphrase != ""
}

type Manager struct {
	cfg     Config
	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger
	now     func() time.Time

	// runMu serializes snapshot runs.
	runMu sync.Mutex
	cron  *cron.Cron
}

func NewManager(cfg Config, db *sql.DB, backups *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		db:      db,
		backups: backups,
		logger:  logger,
		now:     time.Now,
	}
	if cfg.Configured() {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Start runs a backup followed by retention cleanup on the cron spec until
// ctx is cancelled.
func (m *Manager) Start(ctx context.Context, spec string) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() {
		if _, err := m.Run(ctx); err != nil {
			m.logger.Error("scheduled backup", "error", err)
			return
		}
		if _, err := m.Cleanup(ctx); err != nil {
			m.logger.Error("backup cleanup", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule backups %q: %w", spec, err)
	}
	m.cron = c
	c.Start()
	m.logger.Info("backup scheduler started", "spec", spec, "bucket", m.cfg.S3.Bucket)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running backup to finish.
func (m *Manager) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// Run snapshots the database, encrypts the snapshot and uploads it. The
// returned record is completed; a failed run leaves a failed record behind.
func (m *Manager) Run(ctx context.Context) (*model.Backup, error) {
	if !m.Enabled() {
		return nil, ErrNotConfigured
	}
	m.runMu.Lock()
	defer m.runMu.Unlock()

	filename := fmt.Sprintf("memento-%s.db.enc", m.now().UTC().Format("2006-01-02T150405Z"))
	key := m.objectKey(filename)

	record, err := m.backups.Create(filename, key)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	logger := m.logger.With("backup_id", record.ID, "key", key)

	size, err := m.upload(ctx, record.ID, key)
	if err != nil {
		if uerr := m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			logger.Error("mark backup failed", "error", uerr)
		}
		logger.Error("backup failed", "error", err)
		return nil, err
	}
	if err := m.backups.UpdateCompleted(record.ID, size); err != nil {
		return nil, err
	}
	logger.Info("backup completed", "size_bytes", size)
	return m.backups.GetByID(record.ID)
}

func (m *Manager) upload(ctx context.Context, id int64, key string) (int64, error) {
	snapshot, err := m.snapshot(ctx, id)
	if err != nil {
		return 0, err
	}
	sealed, err := Seal(snapshot, m.cfg.Passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	if err := m.backups.UpdateStatus(id, model.BackupStatusUploading, ""); err != nil {
		return 0, err
	}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(sealed)), nil
}

// snapshot writes a consistent copy of the live database with VACUUM INTO
// and returns its bytes.
func (m *Manager) snapshot(ctx context.Context, id int64) ([]byte, error) {
	dir, err := os.MkdirTemp("", "memento-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, fmt.Sprintf("snapshot-%d.db", id))
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO "+quote(path)); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (m *Manager) objectKey(filename string) string {
	prefix := strings.Trim(m.cfg.S3.Prefix, "/")
	if prefix == "" {
		return filename
	}
	return prefix + "/" + filename
}

// List returns the most recent backups, newest first.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	if limit <= 0 {
		limit = 20
	}
	return m.backups.List(limit)
}

// Fetch downloads and decrypts backup id into dst, then verifies that dst is
// an intact SQLite database. dst is not touched when verification fails.
func (m *Manager) Fetch(ctx context.Context, id int64, dst string) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	record, err := m.backups.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("backup %d: %w", id, sql.ErrNoRows)
	}
	if record.Status != model.BackupStatusCompleted {
		return fmt.Errorf("backup %d is %s", id, record.Status)
	}

	obj, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer obj.Body.Close()
	sealed, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}

	plain, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move restored database: %w", err)
	}
	m.logger.Info("backup fetched", "backup_id", id, "path", dst)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Replace moves a fetched database over dbPath and drops the WAL files of the
// old one. The database at dbPath must be closed.
func Replace(fetched, dbPath string) error {
	if err := os.Rename(fetched, dbPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Cleanup deletes backups older than the retention period, both the records
// and the objects. It returns how many were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if !m.Enabled() || m.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	before := m.now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys), "retention_days", m.cfg.RetentionDays)
	}
	return len(keys), nil
}
