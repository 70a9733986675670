package storage

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Ctrl-Creeper/HippoRAG/embed"
)

func openSQLite(t *testing.T, name string) *Manager {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	m := NewManager()
	require.NoError(t, m.Start(db))
	require.Equal(t, "sqlite", m.Dialect())
	require.NoError(t, m.Build())
	return m
}

func repos(t *testing.T, m *Manager) Repos {
	t.Helper()
	r, ok := m.Driver().(Repos)
	require.True(t, ok)
	return r
}

func TestStartRejectsUnknownConnection(t *testing.T) {
	m := NewManager()
	err := m.Start("not a connection")
	assert.ErrorIs(t, err, ErrNoAdapter)
}

func TestMigrateIsIdempotent(t *testing.T) {
	m := openSQLite(t, "storemigrate")
	require.NoError(t, m.Build())
	require.NoError(t, m.Build())
}

func TestFactUpsertReinforces(t *testing.T) {
	r := repos(t, openSQLite(t, "storeupsert"))

	up := FactUpsert{
		Subject:    "cat",
		Predicate:  "eats",
		Object:     "fish",
		Activation: 1.0,
		Uniq:       "cat|eats|fish",
	}
	id1, err := r.Fact().Upsert("ns", up)
	require.NoError(t, err)
	id2, err := r.Fact().Upsert("ns", up)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	facts, err := r.Fact().List("ns")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, int64(1), facts[0].AccessCount)
	assert.False(t, facts[0].CreatedAt.IsZero())

	// Same uniq in a different namespace is a separate fact.
	id3, err := r.Fact().Upsert("other", up)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestFactSearchByEmbedding(t *testing.T) {
	r := repos(t, openSQLite(t, "storesearch"))

	near := []float32{1, 0, 0}
	far := []float32{0, 1, 0}
	_, err := r.Fact().Upsert("ns", FactUpsert{
		Subject: "a", Predicate: "is", Object: "near",
		Embedding: embed.EncodeVector(near), Uniq: "a",
	})
	require.NoError(t, err)
	_, err = r.Fact().Upsert("ns", FactUpsert{
		Subject: "b", Predicate: "is", Object: "far",
		Embedding: embed.EncodeVector(far), Uniq: "b",
	})
	require.NoError(t, err)

	hits, err := r.Fact().SearchByEmbedding("ns", []float32{0.9, 0.1, 0}, 1, 100)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "near", hits[0].Fact.Object)
	assert.Greater(t, hits[0].Score, 0.9)
}

func TestAccessEvents(t *testing.T) {
	r := repos(t, openSQLite(t, "storeaccess"))

	id, err := r.Fact().Upsert("ns", FactUpsert{Subject: "a", Predicate: "is", Object: "x", Uniq: "a"})
	require.NoError(t, err)

	require.NoError(t, r.Access().Append(id, "query one", 0.9))
	require.NoError(t, r.Access().Append(id, "query two", 0.1))

	n, err := r.Access().CountRelevant(id, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, r.Access().DeleteForFacts([]int64{id}))
	n, err = r.Access().CountRelevant(id, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuditLog(t *testing.T) {
	r := repos(t, openSQLite(t, "storeaudit"))

	require.NoError(t, r.Audit().Append(AuditRecord{
		Namespace: "ns",
		Subject:   "earth",
		Predicate: "shape",
		OldObject: "round",
		NewObject: "flat",
		Strategy:  "keep_new",
		Result:    "flat",
		Notes:     "new fact replaces old fact",
	}))
	require.NoError(t, r.Audit().Append(AuditRecord{
		Namespace: "ns",
		Subject:   "mars",
		Predicate: "color",
		OldObject: "red",
		NewObject: "butterscotch",
		Strategy:  "merge",
		Result:    "(red or butterscotch)",
	}))

	recs, err := r.Audit().List("ns")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.NotEmpty(t, recs[0].UUID)
	assert.False(t, recs[0].CreatedAt.IsZero())

	counts, err := r.Audit().CountByStrategy("ns")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["keep_new"])
	assert.Equal(t, int64(1), counts["merge"])
}
