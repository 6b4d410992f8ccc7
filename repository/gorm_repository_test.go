package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

type capturedQuery struct {
	sql  string
	vars []interface{}
}

// dryRunRepo builds a repository over a dry-run DB that records the SQL each
// query would execute, so scoping clauses can be asserted without Postgres.
func dryRunRepo(t *testing.T) (*GORMRepository, *capturedQuery) {
	t.Helper()

	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)

	captured := &capturedQuery{}
	err = db.Callback().Query().After("gorm:query").Register("capture_sql", func(tx *gorm.DB) {
		captured.sql = tx.Statement.SQL.String()
		captured.vars = tx.Statement.Vars
	})
	require.NoError(t, err)

	return NewGORMRepository(db), captured
}

func TestGetTestCardScopesToSessionOwner(t *testing.T) {
	repo, captured := dryRunRepo(t)

	repo.GetTestCard(context.Background(), "card-1", "user-1")

	assert.Contains(t, captured.sql, "JOIN test_plans ON test_plans.id = test_cards.test_plan_id")
	assert.Contains(t, captured.sql, "JOIN agent_sessions ON agent_sessions.id = test_plans.session_id")
	assert.Contains(t, captured.sql, "agent_sessions.user_id = ?")
	assert.Contains(t, captured.vars, "card-1")
	assert.Contains(t, captured.vars, "user-1")
}

func TestGetAgentsByIDsScopesToVisibleAgents(t *testing.T) {
	repo, captured := dryRunRepo(t)

	agents, err := repo.GetAgentsByIDs(context.Background(), []string{"a1", "a2"}, "user-1")
	require.NoError(t, err)
	assert.Empty(t, agents)

	assert.Contains(t, captured.sql, "user_id IS NULL OR user_id = ?")
	assert.Contains(t, captured.vars, "user-1")
}

func TestGetAgentsByIDsEmptyInputSkipsQuery(t *testing.T) {
	repo, captured := dryRunRepo(t)

	agents, err := repo.GetAgentsByIDs(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.Empty(t, agents)
	assert.Empty(t, captured.sql)
}
