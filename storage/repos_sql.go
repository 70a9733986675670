package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ctrl-Creeper/HippoRAG/embed"
)

type sqlFactRepo struct {
	db      *sql.DB
	dialect string
}

func (r *sqlFactRepo) placeholder(n int) string {
	if r.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (r *sqlFactRepo) Upsert(namespace string, f FactUpsert) (int64, error) {
	u := uuid.New().String()
	now := time.Now()

	var query string
	if r.dialect == "postgres" {
		query = `INSERT INTO hippo_fact (uuid, namespace, subject, predicate, object, uncertain, embedding, activation, access_count, date_last_access, uniq, date_created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)
		 ON CONFLICT (namespace, uniq) DO UPDATE SET
			access_count = hippo_fact.access_count + 1,
			date_last_access = $12,
			date_updated = $13
		 RETURNING id`
	} else {
		query = `INSERT INTO hippo_fact (uuid, namespace, subject, predicate, object, uncertain, embedding, activation, access_count, date_last_access, uniq, date_created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		 ON CONFLICT (namespace, uniq) DO UPDATE SET
			access_count = access_count + 1,
			date_last_access = ?,
			date_updated = ?
		 RETURNING id`
	}

	var id int64
	err := r.db.QueryRow(
		query,
		u, namespace, f.Subject, f.Predicate, f.Object, f.Uncertain, f.Embedding, f.Activation, now, f.Uniq, now, now, now,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *sqlFactRepo) List(namespace string) ([]FactRecord, error) {
	query := `SELECT id, uuid, subject, predicate, object, uncertain, embedding, activation, access_count, date_last_access, date_created
	 FROM hippo_fact WHERE namespace = ` + r.placeholder(1) + ` ORDER BY id`
	rows, err := r.db.Query(query, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FactRecord
	for rows.Next() {
		f := FactRecord{Namespace: namespace}
		var lastAccessAny, createdAny any
		if err := rows.Scan(&f.ID, &f.UUID, &f.Subject, &f.Predicate, &f.Object, &f.Uncertain, &f.Embedding, &f.Activation, &f.AccessCount, &lastAccessAny, &createdAny); err != nil {
			return nil, err
		}
		f.LastAccess, _ = decodeAnyTime(lastAccessAny)
		f.CreatedAt, _ = decodeAnyTime(createdAny)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *sqlFactRepo) Delete(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = r.placeholder(i + 1)
		args[i] = id
	}

	res, err := r.db.Exec("DELETE FROM hippo_fact WHERE id IN ("+strings.Join(ph, ", ")+")", args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *sqlFactRepo) UpdateObject(id int64, object string, uncertain bool, uniq string) error {
	now := time.Now()
	var query string
	if r.dialect == "postgres" {
		query = "UPDATE hippo_fact SET object = $1, uncertain = $2, uniq = $3, date_updated = $4 WHERE id = $5"
	} else {
		query = "UPDATE hippo_fact SET object = ?, uncertain = ?, uniq = ?, date_updated = ? WHERE id = ?"
	}
	_, err := r.db.Exec(query, object, uncertain, uniq, now, id)
	return err
}

func (r *sqlFactRepo) UpdateActivation(id int64, activation float64) error {
	now := time.Now()
	var query string
	if r.dialect == "postgres" {
		query = "UPDATE hippo_fact SET activation = $1, date_updated = $2 WHERE id = $3"
	} else {
		query = "UPDATE hippo_fact SET activation = ?, date_updated = ? WHERE id = ?"
	}
	_, err := r.db.Exec(query, activation, now, id)
	return err
}

func (r *sqlFactRepo) RecordAccess(id int64) error {
	now := time.Now()
	var query string
	if r.dialect == "postgres" {
		query = "UPDATE hippo_fact SET access_count = access_count + 1, date_last_access = $1, date_updated = $2 WHERE id = $3"
	} else {
		query = "UPDATE hippo_fact SET access_count = access_count + 1, date_last_access = ?, date_updated = ? WHERE id = ?"
	}
	_, err := r.db.Exec(query, now, now, id)
	return err
}

func (r *sqlFactRepo) SearchByEmbedding(namespace string, queryEmbedding []float32, limit, scanLimit int) ([]FactSearchResult, error) {
	// Fetch facts and compute cosine similarity in memory.
	var query string
	if r.dialect == "postgres" {
		query = `SELECT id, uuid, subject, predicate, object, uncertain, embedding, activation, access_count, date_last_access, date_created
		 FROM hippo_fact WHERE namespace = $1 LIMIT $2`
	} else {
		query = `SELECT id, uuid, subject, predicate, object, uncertain, embedding, activation, access_count, date_last_access, date_created
		 FROM hippo_fact WHERE namespace = ? LIMIT ?`
	}
	rows, err := r.db.Query(query, namespace, scanLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FactSearchResult
	for rows.Next() {
		f := FactRecord{Namespace: namespace}
		var lastAccessAny, createdAny any
		if err := rows.Scan(&f.ID, &f.UUID, &f.Subject, &f.Predicate, &f.Object, &f.Uncertain, &f.Embedding, &f.Activation, &f.AccessCount, &lastAccessAny, &createdAny); err != nil {
			continue
		}
		f.LastAccess, _ = decodeAnyTime(lastAccessAny)
		f.CreatedAt, _ = decodeAnyTime(createdAny)

		score := embed.CosineSimilarity(queryEmbedding, embed.DecodeVector(f.Embedding))
		results = append(results, FactSearchResult{Fact: f, Score: score})
	}

	// Sort by score (desc) and limit
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			// tie-breaker: more recent first
			return results[i].Fact.LastAccess.After(results[j].Fact.LastAccess)
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

type sqlAccessRepo struct {
	db      *sql.DB
	dialect string
}

func (r *sqlAccessRepo) Append(factID int64, query string, similarity float64) error {
	now := time.Now()
	var q string
	if r.dialect == "postgres" {
		q = "INSERT INTO hippo_access_event (fact_id, query, similarity, date_created) VALUES ($1, $2, $3, $4)"
	} else {
		q = "INSERT INTO hippo_access_event (fact_id, query, similarity, date_created) VALUES (?, ?, ?, ?)"
	}
	_, err := r.db.Exec(q, factID, query, similarity, now)
	return err
}

func (r *sqlAccessRepo) CountRelevant(factID int64, minSimilarity float64) (int64, error) {
	var q string
	if r.dialect == "postgres" {
		q = "SELECT COUNT(*) FROM hippo_access_event WHERE fact_id = $1 AND similarity >= $2"
	} else {
		q = "SELECT COUNT(*) FROM hippo_access_event WHERE fact_id = ? AND similarity >= ?"
	}
	var n int64
	err := r.db.QueryRow(q, factID, minSimilarity).Scan(&n)
	return n, err
}

func (r *sqlAccessRepo) DeleteForFacts(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		if r.dialect == "postgres" {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
		args[i] = id
	}

	_, err := r.db.Exec("DELETE FROM hippo_access_event WHERE fact_id IN ("+strings.Join(ph, ", ")+")", args...)
	return err
}

type sqlAuditRepo struct {
	db      *sql.DB
	dialect string
}

func (r *sqlAuditRepo) Append(rec AuditRecord) error {
	u := rec.UUID
	if u == "" {
		u = uuid.New().String()
	}
	at := rec.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	var q string
	if r.dialect == "postgres" {
		q = `INSERT INTO hippo_conflict_audit (uuid, namespace, subject, predicate, old_object, new_object, old_access_count, new_access_count, strategy, result, notes, date_created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	} else {
		q = `INSERT INTO hippo_conflict_audit (uuid, namespace, subject, predicate, old_object, new_object, old_access_count, new_access_count, strategy, result, notes, date_created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}
	_, err := r.db.Exec(q, u, rec.Namespace, rec.Subject, rec.Predicate, rec.OldObject, rec.NewObject, rec.OldAccessCount, rec.NewAccessCount, rec.Strategy, rec.Result, rec.Notes, at)
	return err
}

func (r *sqlAuditRepo) List(namespace string) ([]AuditRecord, error) {
	var q string
	if r.dialect == "postgres" {
		q = `SELECT uuid, subject, predicate, old_object, new_object, old_access_count, new_access_count, strategy, result, notes, date_created
		 FROM hippo_conflict_audit WHERE namespace = $1 ORDER BY id`
	} else {
		q = `SELECT uuid, subject, predicate, old_object, new_object, old_access_count, new_access_count, strategy, result, notes, date_created
		 FROM hippo_conflict_audit WHERE namespace = ? ORDER BY id`
	}
	rows, err := r.db.Query(q, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		rec := AuditRecord{Namespace: namespace}
		var notes sql.NullString
		var createdAny any
		if err := rows.Scan(&rec.UUID, &rec.Subject, &rec.Predicate, &rec.OldObject, &rec.NewObject, &rec.OldAccessCount, &rec.NewAccessCount, &rec.Strategy, &rec.Result, &notes, &createdAny); err != nil {
			return nil, err
		}
		rec.Notes = notes.String
		rec.CreatedAt, _ = decodeAnyTime(createdAny)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *sqlAuditRepo) CountByStrategy(namespace string) (map[string]int64, error) {
	var q string
	if r.dialect == "postgres" {
		q = "SELECT strategy, COUNT(*) FROM hippo_conflict_audit WHERE namespace = $1 GROUP BY strategy"
	} else {
		q = "SELECT strategy, COUNT(*) FROM hippo_conflict_audit WHERE namespace = ? GROUP BY strategy"
	}
	rows, err := r.db.Query(q, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var strategy string
		var n int64
		if err := rows.Scan(&strategy, &n); err != nil {
			return nil, err
		}
		out[strategy] = n
	}
	return out, rows.Err()
}

// SQL driver repos
type sqlRepos struct {
	fact   FactRepo
	access AccessRepo
	audit  AuditRepo
}

func (d *SQLDriver) Fact() FactRepo {
	if d.repos == nil {
		d.repos = &sqlRepos{
			fact:   &sqlFactRepo{db: d.db(), dialect: d.dialect},
			access: &sqlAccessRepo{db: d.db(), dialect: d.dialect},
			audit:  &sqlAuditRepo{db: d.db(), dialect: d.dialect},
		}
	}
	return d.repos.fact
}

func (d *SQLDriver) Access() AccessRepo {
	if d.repos == nil {
		d.Fact() // Initialize repos
	}
	return d.repos.access
}

func (d *SQLDriver) Audit() AuditRepo {
	if d.repos == nil {
		d.Fact()
	}
	return d.repos.audit
}
