package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexflow/backend/models"
)

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueIDs([]string{"a", "b", "a", "b", "a"}))
	assert.Equal(t, []string{"a"}, uniqueIDs([]string{"a"}))
	assert.Nil(t, uniqueIDs(nil))
}

func TestCreateAgentSetRequestValidate(t *testing.T) {
	valid := CreateAgentSetRequest{
		Name: "Review",
		Stages: []StageRequest{
			{Name: "Draft", Mode: models.ModeSequential, AgentIDs: []string{"a1"}},
		},
	}
	require.NoError(t, valid.validate())

	noName := valid
	noName.Name = ""
	assert.Error(t, noName.validate())

	noStages := valid
	noStages.Stages = nil
	assert.Error(t, noStages.validate())

	badMode := valid
	badMode.Stages = []StageRequest{{Mode: "round_robin", AgentIDs: []string{"a1"}}}
	assert.Error(t, badMode.validate())

	noAgents := valid
	noAgents.Stages = []StageRequest{{Mode: models.ModeParallel}}
	assert.Error(t, noAgents.validate())
}
