package systems

import (
	"fmt"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/world"
)

// Quests принимает квесты и двигает прогресс целей по событиям тика
type Quests struct{}

func (Quests) Name() string { return "quests" }

func (Quests) Run(ctx *Context) error {
	for _, a := range ctx.Accepts {
		p, ok := ctx.World.Player(a.PlayerID)
		if !ok {
			continue
		}
		if err := AcceptQuest(ctx, p, a.Quest); err != nil {
			ctx.Fail(p.ID, err)
		}
	}

	for _, ev := range ctx.Progress {
		p, ok := ctx.World.Player(ev.PlayerID)
		if !ok {
			continue
		}
		for _, q := range p.Quests {
			if q.Status != world.QuestInProgress {
				continue
			}
			t := ctx.Catalog.Quests[q.ID]
			changed := false
			for i, o := range t.Objectives {
				if i >= len(q.Progress) || o.Kind != ev.Kind || o.Target != ev.Target || q.Progress[i] >= o.Count {
					continue
				}
				q.Progress[i] = min(q.Progress[i]+ev.Count, o.Count)
				changed = true
			}
			if !changed {
				continue
			}
			if objectivesMet(q, t.Objectives) {
				q.Status = world.QuestReadyToTurnIn
			}
			sendQuestUpdate(ctx, p.ID, q)
		}
	}
	return nil
}

// AcceptQuest добавляет квест в активные
func AcceptQuest(ctx *Context, p *world.PlayerState, questID string) error {
	t, ok := ctx.Catalog.Quests[questID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuest, questID)
	}
	if p.Quest(questID) != nil {
		return ErrQuestActive
	}
	if _, done := p.Completed[questID]; done {
		return ErrQuestCompleted
	}
	q := &world.QuestProgress{
		ID:       questID,
		Status:   world.QuestInProgress,
		Progress: make([]int, len(t.Objectives)),
	}
	p.Quests = append(p.Quests, q)
	sendQuestUpdate(ctx, p.ID, q)
	return nil
}

// TurnIn сдаёт готовый квест NPC-квестодателю
func TurnIn(ctx *Context, p *world.PlayerState, npcTemplate, questID string) error {
	q := p.Quest(questID)
	if q == nil {
		return fmt.Errorf("%w: %s", ErrUnknownQuest, questID)
	}
	if q.Status != world.QuestReadyToTurnIn {
		return ErrQuestNotReady
	}
	t := ctx.Catalog.Quests[questID]
	if t.Giver != npcTemplate {
		return ErrWrongNPC
	}
	q.Status = world.QuestCompleted
	p.RemoveQuest(questID)
	p.Completed[questID] = struct{}{}
	p.IncStat(world.StatQuestsComplete, 1)
	ctx.AwardXP(p, t.XPReward)
	sendQuestUpdate(ctx, p.ID, q)
	ctx.Out.Emit("quest.completed", p.ID, map[string]any{"quest": questID})
	return nil
}

func objectivesMet(q *world.QuestProgress, objectives []catalog.Objective) bool {
	for i, o := range objectives {
		if i >= len(q.Progress) || q.Progress[i] < o.Count {
			return false
		}
	}
	return true
}

func sendQuestUpdate(ctx *Context, playerID string, q *world.QuestProgress) {
	t := ctx.Catalog.Quests[q.ID]
	required := make([]int, len(t.Objectives))
	for i, o := range t.Objectives {
		required[i] = o.Count
	}
	ctx.Out.Send(playerID, protocol.QuestUpdate{
		Quest:    q.ID,
		Status:   string(q.Status),
		Progress: append([]int(nil), q.Progress...),
		Required: required,
	})
}
