package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/pkg/config"
	"github.com/manpowerhq/compliance-api/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL,
    role TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT true,
    last_login TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    revoked BOOLEAN NOT NULL DEFAULT false,
    revoked_at TIMESTAMPTZ,
    ip_address TEXT,
    user_agent TEXT
);

CREATE TABLE IF NOT EXISTS companies (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    trade_license TEXT,
    contact_email TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS employees (
    id UUID PRIMARY KEY,
    company_id UUID NOT NULL REFERENCES companies(id),
    name TEXT NOT NULL,
    trade TEXT NOT NULL,
    mobile TEXT NOT NULL UNIQUE,
    joining_date DATE NOT NULL,
    nationality TEXT,
    passport_number TEXT,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_types (
    key TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    mandatory BOOLEAN NOT NULL DEFAULT false,
    has_expiry BOOLEAN NOT NULL DEFAULT true,
    required_fields TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_records (
    id UUID PRIMARY KEY,
    employee_id UUID NOT NULL REFERENCES employees(id),
    type_key TEXT NOT NULL REFERENCES document_types(key),
    issue_date DATE,
    expiry_date DATE,
    fields JSONB NOT NULL DEFAULT '{}',
    file_name TEXT,
    file_path TEXT,
    file_size BIGINT,
    file_type TEXT,
    active BOOLEAN NOT NULL DEFAULT true,
    renewed_from UUID,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_document_records_active
    ON document_records (employee_id, type_key) WHERE active;

CREATE TABLE IF NOT EXISTS compliance_rules (
    id UUID PRIMARY KEY,
    company_id UUID REFERENCES companies(id),
    type_key TEXT NOT NULL REFERENCES document_types(key),
    grace_days INT,
    fine_rate NUMERIC(12,2),
    fine_type TEXT,
    fine_cap NUMERIC(12,2),
    mandatory_override BOOLEAN,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_compliance_rules_scope
    ON compliance_rules (COALESCE(company_id::text, 'global'), type_key);

CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    type TEXT NOT NULL,
    read BOOLEAN NOT NULL DEFAULT false,
    entity_type TEXT,
    entity_id TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_ledger (
    id UUID PRIMARY KEY,
    document_id UUID NOT NULL,
    tier TEXT NOT NULL,
    day_bucket DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (document_id, tier, day_bucket)
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id UUID PRIMARY KEY,
    user_id UUID,
    action TEXT NOT NULL,
    resource TEXT NOT NULL,
    resource_id TEXT,
    old_values JSONB,
    new_values JSONB,
    ip_address TEXT,
    user_agent TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS report_jobs (
    id UUID PRIMARY KEY,
    type TEXT NOT NULL,
    params JSONB NOT NULL,
    status TEXT NOT NULL,
    progress INT NOT NULL DEFAULT 0,
    result_url TEXT,
    created_by UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    error_message TEXT
);
`

type documentTypeSeed struct {
	key            string
	displayName    string
	mandatory      bool
	hasExpiry      bool
	requiredFields []string
}

type ruleSeed struct {
	typeKey   string
	graceDays int
	fineRate  string
	fineType  string
	fineCap   string
}

var documentTypes = []documentTypeSeed{
	{models.DocTypeVisa, "Residence Visa", true, true, []string{"visa_number", "sponsor"}},
	{models.DocTypeNationalID, "National ID", true, true, []string{"id_number"}},
	{models.DocTypeWorkPermit, "Work Permit", true, true, []string{"permit_number"}},
	{models.DocTypePassport, "Passport", true, true, []string{"passport_number"}},
	{models.DocTypeHealthInsurance, "Health Insurance", true, true, nil},
	{models.DocTypeILOE, "ILOE Insurance", false, true, nil},
	{models.DocTypeMedicalFitness, "Medical Fitness Certificate", false, true, nil},
	{"police_clearance", "Police Clearance Certificate", false, false, nil},
}

var globalRules = []ruleSeed{
	{models.DocTypeVisa, 30, "50.00", "daily", "5000.00"},
	{models.DocTypeNationalID, 30, "20.00", "daily", "1000.00"},
	{models.DocTypeWorkPermit, 60, "500.00", "monthly", "5000.00"},
	{models.DocTypePassport, 0, "0.00", "one_time", "0.00"},
	{models.DocTypeHealthInsurance, 30, "300.00", "one_time", "300.00"},
	{models.DocTypeILOE, 30, "100.00", "one_time", "100.00"},
	{models.DocTypeMedicalFitness, 0, "0.00", "one_time", "0.00"},
}

func main() {
	var (
		applySchema   bool
		adminEmail    string
		adminPassword string
	)
	flag.BoolVar(&applySchema, "schema", false, "Apply the database schema before seeding")
	flag.StringVar(&adminEmail, "admin-email", "admin@example.com", "Email for the bootstrap admin account")
	flag.StringVar(&adminPassword, "admin-password", "", "Password for the bootstrap admin account (required to create one)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx := context.Background()

	if applySchema {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
		log.Println("schema applied")
	}

	if err := seedDocumentTypes(ctx, db); err != nil {
		log.Fatalf("failed to seed document types: %v", err)
	}
	if err := seedGlobalRules(ctx, db); err != nil {
		log.Fatalf("failed to seed global rules: %v", err)
	}
	if adminPassword != "" {
		if err := seedAdmin(ctx, db, adminEmail, adminPassword); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	log.Println("seeding complete")
}

func seedDocumentTypes(ctx context.Context, db *sqlx.DB) error {
	const query = `INSERT INTO document_types (key, display_name, mandatory, has_expiry, required_fields, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (key) DO NOTHING`
	now := time.Now().UTC()
	for _, dt := range documentTypes {
		if _, err := db.ExecContext(ctx, query, dt.key, dt.displayName, dt.mandatory, dt.hasExpiry, pq.StringArray(dt.requiredFields), now); err != nil {
			return fmt.Errorf("document type %s: %w", dt.key, err)
		}
	}
	return nil
}

func seedGlobalRules(ctx context.Context, db *sqlx.DB) error {
	const query = `INSERT INTO compliance_rules (id, company_id, type_key, grace_days, fine_rate, fine_type, fine_cap, mandatory_override, created_at, updated_at)
        VALUES ($1, NULL, $2, $3, $4, $5, $6, NULL, $7, $7) ON CONFLICT DO NOTHING`
	now := time.Now().UTC()
	for _, rule := range globalRules {
		if _, err := db.ExecContext(ctx, query, uuid.NewString(), rule.typeKey, rule.graceDays, rule.fineRate, rule.fineType, rule.fineCap, now); err != nil {
			return fmt.Errorf("rule %s: %w", rule.typeKey, err)
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, db *sqlx.DB, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
        VALUES ($1, $2, $3, 'Administrator', 'ADMIN', true, $4, $4) ON CONFLICT (email) DO NOTHING`
	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, query, uuid.NewString(), email, string(hash), now); err != nil {
		return err
	}
	return nil
}
