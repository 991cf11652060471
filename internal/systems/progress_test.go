package systems

import (
	"errors"
	"testing"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAchievementUnlockIsIdempotent(t *testing.T) {
	ctx, rec, p := fixture(t)
	a := ctx.Catalog.Achievements["lumberjack"]
	p.Stats[world.StatGathered] = a.Requirement

	require.NoError(t, Achievements{}.Run(ctx))
	assert.True(t, p.HasAchievement("lumberjack"))
	xp := p.XP
	assert.Equal(t, a.XPReward, xp)
	assert.InDelta(t, a.Bonus, p.Bonuses[a.BonusStat], 1e-9)

	// повторная квалификация не даёт опыт второй раз
	p.Stats[world.StatGathered] += 100
	for i := 0; i < 3; i++ {
		require.NoError(t, Achievements{}.Run(ctx))
	}
	assert.Equal(t, xp, p.XP)
	assert.Equal(t, 1, rec.count(protocol.TypeAchievement))
	assert.InDelta(t, a.Bonus, p.Bonuses[a.BonusStat], 1e-9)
}

func TestQuestAcceptProgressAndTurnIn(t *testing.T) {
	ctx, rec, p := fixture(t)

	require.NoError(t, AcceptQuest(ctx, p, "first_steps"))
	assert.ErrorIs(t, AcceptQuest(ctx, p, "first_steps"), ErrQuestActive)
	assert.ErrorIs(t, AcceptQuest(ctx, p, "nope"), ErrUnknownQuest)

	ctx.Progress = []ProgressEvent{
		{PlayerID: p.ID, Kind: catalog.ObjectiveGather, Target: "wood", Count: 10},
		{PlayerID: p.ID, Kind: catalog.ObjectiveGather, Target: "berries", Count: 3},
	}
	require.NoError(t, Quests{}.Run(ctx))
	q := p.Quest("first_steps")
	require.NotNil(t, q)
	assert.Equal(t, []int{5, 3}, q.Progress, "счётчик ограничен требуемым числом")
	assert.Equal(t, world.QuestInProgress, q.Status)

	ctx.Progress = []ProgressEvent{{PlayerID: p.ID, Kind: catalog.ObjectiveGather, Target: "berries", Count: 1}}
	require.NoError(t, Quests{}.Run(ctx))
	assert.Equal(t, world.QuestReadyToTurnIn, q.Status)
	assert.Equal(t, 4, rec.count(protocol.TypeQuestUpdate), "accept + три изменения")

	assert.ErrorIs(t, TurnIn(ctx, p, "smith", "first_steps"), ErrWrongNPC)
	require.NoError(t, TurnIn(ctx, p, "elder", "first_steps"))
	assert.Nil(t, p.Quest("first_steps"))
	assert.Equal(t, 1, p.Stats[world.StatQuestsComplete])
	assert.Equal(t, ctx.Catalog.Quests["first_steps"].XPReward, p.XP)
	assert.ErrorIs(t, AcceptQuest(ctx, p, "first_steps"), ErrQuestCompleted)
}

func TestTurnInRequiresReadyQuest(t *testing.T) {
	ctx, _, p := fixture(t)
	require.NoError(t, AcceptQuest(ctx, p, "toolmaker"))
	assert.ErrorIs(t, TurnIn(ctx, p, "smith", "toolmaker"), ErrQuestNotReady)
}

func TestPipelineIsolatesPanics(t *testing.T) {
	ctx, _, _ := fixture(t)
	var ran []string
	failed := ""
	pipe := NewPipelineWith(
		namedSystem{"first", func(*Context) error { ran = append(ran, "first"); return nil }},
		namedSystem{"boom", func(*Context) error { panic("kaboom") }},
		namedSystem{"err", func(*Context) error { return errors.New("bad") }},
		namedSystem{"last", func(*Context) error { ran = append(ran, "last"); return nil }},
	)
	pipe.OnFailure = func(name string) { failed += name + ";" }

	assert.NotPanics(t, func() { pipe.Run(ctx) })
	assert.Equal(t, []string{"first", "last"}, ran)
	assert.Equal(t, "boom;err;", failed)
}

func TestDefaultPipelineOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"survival", "crafting", "quests", "achievements", "spawning", "barrier", "death"},
		NewPipeline().Names())
}

type namedSystem struct {
	name string
	fn   func(*Context) error
}

func (s namedSystem) Name() string           { return s.name }
func (s namedSystem) Run(ctx *Context) error { return s.fn(ctx) }
