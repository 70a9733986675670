package storage

var sqliteMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS hippo_schema_version (
			num INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hippo_fact (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			namespace TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			uncertain INTEGER NOT NULL DEFAULT 0,
			embedding BLOB,
			activation REAL NOT NULL DEFAULT 1.0,
			access_count INTEGER NOT NULL DEFAULT 0,
			date_last_access TIMESTAMP,
			uniq TEXT NOT NULL,
			date_created TIMESTAMP NOT NULL,
			date_updated TIMESTAMP,
			UNIQUE (namespace, uniq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_fact_namespace
			ON hippo_fact (namespace)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_fact_activation
			ON hippo_fact (namespace, activation)`,
		`CREATE TABLE IF NOT EXISTS hippo_access_event (
			id INTEGER PRIMARY KEY,
			fact_id INTEGER NOT NULL,
			query TEXT,
			similarity REAL,
			date_created TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_access_event_fact
			ON hippo_access_event (fact_id)`,
		`CREATE TABLE IF NOT EXISTS hippo_conflict_audit (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			namespace TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			old_object TEXT NOT NULL,
			new_object TEXT NOT NULL,
			old_access_count INTEGER NOT NULL DEFAULT 0,
			new_access_count INTEGER NOT NULL DEFAULT 0,
			strategy TEXT NOT NULL,
			result TEXT NOT NULL,
			notes TEXT,
			date_created TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_conflict_audit_ns
			ON hippo_conflict_audit (namespace)`,
	},
}

var postgresMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS hippo_schema_version (
			num INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hippo_fact (
			id BIGSERIAL PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			namespace TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			uncertain BOOLEAN NOT NULL DEFAULT FALSE,
			embedding BYTEA,
			activation DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			access_count BIGINT NOT NULL DEFAULT 0,
			date_last_access TIMESTAMPTZ,
			uniq TEXT NOT NULL,
			date_created TIMESTAMPTZ NOT NULL,
			date_updated TIMESTAMPTZ,
			UNIQUE (namespace, uniq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_fact_namespace
			ON hippo_fact (namespace)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_fact_activation
			ON hippo_fact (namespace, activation)`,
		`CREATE TABLE IF NOT EXISTS hippo_access_event (
			id BIGSERIAL PRIMARY KEY,
			fact_id BIGINT NOT NULL,
			query TEXT,
			similarity DOUBLE PRECISION,
			date_created TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_access_event_fact
			ON hippo_access_event (fact_id)`,
		`CREATE TABLE IF NOT EXISTS hippo_conflict_audit (
			id BIGSERIAL PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			namespace TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			old_object TEXT NOT NULL,
			new_object TEXT NOT NULL,
			old_access_count BIGINT NOT NULL DEFAULT 0,
			new_access_count BIGINT NOT NULL DEFAULT 0,
			strategy TEXT NOT NULL,
			result TEXT NOT NULL,
			notes TEXT,
			date_created TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hippo_conflict_audit_ns
			ON hippo_conflict_audit (namespace)`,
	},
}
