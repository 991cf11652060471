package engine

import (
	"errors"

	"github.com/annel0/wildlands/internal/interest"
	"github.com/annel0/wildlands/internal/persistence"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/storage"
	"github.com/annel0/wildlands/internal/systems"
	"github.com/annel0/wildlands/internal/world"
)

// apply применяет одну команду. Ошибки валидации уходят игроку уведомлением.
func (e *Engine) apply(cmd Command) {
	switch c := cmd.(type) {
	case Join:
		e.handleJoin(c)
		return
	case Leave:
		e.handleLeave(c)
		return
	}

	// игровые команды от отсутствующих или уходящих игроков молча игнорируются
	p, ok := e.world.Player(cmd.Player())
	if !ok || p.Leaving {
		return
	}

	var err error
	switch c := cmd.(type) {
	case Input:
		err = e.handleInput(p, c)
	case Spawn:
		err = systems.Spawn(e.ctx, p)
	case Craft:
		e.ctx.Crafts = append(e.ctx.Crafts, systems.CraftRequest{PlayerID: p.ID, Recipe: c.Recipe})
	case AcceptQuest:
		e.ctx.Accepts = append(e.ctx.Accepts, systems.QuestAccept{PlayerID: p.ID, Quest: c.Quest})
	case SelectSlot:
		err = systems.SelectSlot(p, c.Slot)
	case SwapSlots:
		err = systems.SwapSlots(p, c.From, c.To)
	case Trade:
		err = systems.Trade(e.ctx, p, c.To, c.Slot, c.Count)
	case NpcAction:
		err = systems.NpcAction(e.ctx, p, c.NPC, c.Action, c.Quest)
	case Rename:
		err = systems.Rename(e.ctx, p, c.Name)
	}
	if err != nil {
		e.ctx.Fail(p.ID, err)
	}
}

func (e *Engine) handleInput(p *world.PlayerState, c Input) error {
	systems.SetIntent(p, c.MoveX, c.MoveY)
	switch c.Action {
	case protocol.ActionGather:
		return systems.Gather(e.ctx, p, c.Target)
	case protocol.ActionAttack:
		if c.TargetPlayer != "" {
			return systems.AttackPlayer(e.ctx, p, c.TargetPlayer)
		}
		return systems.Attack(e.ctx, p, c.Target)
	case protocol.ActionUse:
		return systems.UseSelected(e.ctx, p)
	}
	return nil
}

//================ Вход =================//

func (e *Engine) handleJoin(c Join) {
	if p, ok := e.world.Player(c.PlayerID); ok {
		e.reattach(p, c)
		return
	}

	if prev, ok := e.joining[c.PlayerID]; ok {
		// вторая попытка входа до окончания загрузки: старая сессия проигрывает
		e.revoke(prev.session, "duplicate login")
		e.joining[c.PlayerID] = pendingJoin{session: c.Session, username: c.Username, tokenID: c.TokenID, token: c.Token}
		return
	}

	e.joining[c.PlayerID] = pendingJoin{session: c.Session, username: c.Username, tokenID: c.TokenID, token: c.Token}
	if !e.store.LoadPlayer(c.PlayerID) {
		e.log.Warn("Очередь хранилища полна, игрок %s входит без сохранения", c.PlayerID)
		e.metrics.PersistenceFailures.WithLabelValues("load").Inc()
		delete(e.joining, c.PlayerID)
		p := world.NewPlayer(c.PlayerID, c.Username, c.TokenID, e.cfg)
		p.Ephemeral = true
		e.admit(p, c.Session, c.Token)
	}
}

// reattach вход игрока, который уже в мире: повторный вход или возврат до завершения сохранения
func (e *Engine) reattach(p *world.PlayerState, c Join) {
	if old, ok := e.sessions[p.ID]; ok && old != c.Session {
		e.revoke(old, "duplicate login")
	}
	p.Token = c.TokenID
	if p.Leaving {
		p.Leaving = false
		if p.Spawned {
			e.world.PlacePlayer(p)
		}
	}
	e.interest.Reset(p.ID)
	e.sessions[p.ID] = c.Session
	p.StatusDirty = true
	e.welcome(p, c.Session, c.Token)
	e.log.Info("Игрок %s переподключён (%s)", p.ID, c.Session.ID())
}

func (e *Engine) revoke(s Outbound, reason string) {
	s.Send(protocol.SessionRevoked{Reason: reason})
	s.Close(reason)
}

func (e *Engine) welcome(p *world.PlayerState, s Outbound, token string) {
	s.Send(protocol.Welcome{
		ID:              p.ID,
		Token:           token,
		ProtocolVersion: protocol.Version,
		Spawned:         p.Spawned,
		TickRate:        e.cfg.Simulation.TickRateHz,
		ChunkSize:       e.world.ChunkSize(),
	})
	s.Send(protocol.Notification{Kind: protocol.NoticeStatus, Data: interest.Status(p, e.world.ChunkSize())})
}

func (e *Engine) admit(p *world.PlayerState, s Outbound, token string) {
	e.world.AddPlayer(p)
	e.sessions[p.ID] = s
	e.welcome(p, s, token)
	e.log.Info("Игрок %s (%s) вошёл в мир, сессия %s", p.ID, p.Username, s.ID())
	pos := p.WorldPos(e.world.ChunkSize())
	e.emit("player.joined", p.ID, map[string]any{"username": p.Username, "x": pos.X, "y": pos.Y})
}

func (e *Engine) playerLoaded(r persistence.PlayerLoaded) {
	pj, ok := e.joining[r.PlayerID]
	if !ok {
		return
	}
	delete(e.joining, r.PlayerID)

	var p *world.PlayerState
	switch {
	case errors.Is(r.Err, storage.ErrNotFound):
		p = world.NewPlayer(r.PlayerID, pj.username, pj.tokenID, e.cfg)
	case r.Err != nil:
		e.log.Warn("Загрузка игрока %s не удалась, состояние не будет сохраняться: %v", r.PlayerID, r.Err)
		e.metrics.PersistenceFailures.WithLabelValues("load").Inc()
		p = world.NewPlayer(r.PlayerID, pj.username, pj.tokenID, e.cfg)
		p.Ephemeral = true
	default:
		if r.Record.Token != "" && r.Record.Token != pj.tokenID {
			// токен перевыпущен после того, как клиент получил свой
			e.revoke(pj.session, "token superseded")
			return
		}
		decoded, err := persistence.DecodePlayer(r.Record, e.cfg)
		if err != nil {
			e.log.Error("Запись игрока %s повреждена: %v", r.PlayerID, err)
			e.metrics.PersistenceFailures.WithLabelValues("decode").Inc()
			decoded = world.NewPlayer(r.PlayerID, pj.username, pj.tokenID, e.cfg)
			decoded.Ephemeral = true
		}
		p = decoded
		p.Token = pj.tokenID
	}
	e.admit(p, pj.session, pj.token)
}

//================ Выход =================//

func (e *Engine) handleLeave(c Leave) {
	if pj, ok := e.joining[c.PlayerID]; ok && pj.session == c.Session {
		// соединение закрылось до окончания загрузки
		delete(e.joining, c.PlayerID)
		return
	}
	if s, ok := e.sessions[c.PlayerID]; !ok || s != c.Session {
		return
	}
	delete(e.sessions, c.PlayerID)
	e.interest.Forget(c.PlayerID)

	p, ok := e.world.Player(c.PlayerID)
	if !ok {
		return
	}
	p.Leaving = true
	p.Intent = p.Intent.Mul(0)
	e.world.UnplacePlayer(p)

	if p.Ephemeral {
		e.dropPlayer(p.ID, c.Reason)
		return
	}
	e.savePlayer(p, persistence.SaveLeave)
}

//================ Результаты хранилища =================//

func (e *Engine) consumeResults() {
	for _, r := range e.store.Drain(0) {
		switch v := r.(type) {
		case persistence.PlayerLoaded:
			e.playerLoaded(v)
		case persistence.PlayerSaved:
			e.playerSaved(v)
		case persistence.ChunkLoaded:
			e.chunkLoaded(v)
		case persistence.ChunkSaved:
			e.chunkSaved(v)
		}
	}
}

func (e *Engine) playerSaved(r persistence.PlayerSaved) {
	delete(e.saving, r.PlayerID)
	if r.Err != nil {
		e.log.Error("Сохранение игрока %s (%s) не удалось после %d попыток: %v", r.PlayerID, r.Reason, r.Attempts, r.Err)
		e.metrics.PersistenceFailures.WithLabelValues("save_player").Inc()
	}

	p, ok := e.world.Player(r.PlayerID)
	if !ok {
		return
	}
	if e.hasPending(r.PlayerID) {
		e.savePlayer(p, e.pendingSave[r.PlayerID])
		return
	}
	if !p.Leaving {
		return
	}
	if r.Err != nil {
		// деградация: состояние потеряно, но игрок не должен зависнуть в мире
		e.dropPlayer(p.ID, "save failed")
		return
	}
	e.dropPlayer(p.ID, "left")
}

func (e *Engine) chunkLoaded(r persistence.ChunkLoaded) {
	c, ok := e.world.Chunk(r.Coord)
	if !ok {
		return
	}
	switch {
	case r.Err == nil && r.Record != nil:
		e.world.RestoreChunk(*r.Record)
	case errors.Is(r.Err, storage.ErrNotFound):
		c.Loading = false
	default:
		// сгенерированное содержимое остаётся, сохранённое будет перезаписано
		e.log.Warn("Загрузка чанка %v не удалась: %v", r.Coord, r.Err)
		e.metrics.PersistenceFailures.WithLabelValues("load_chunk").Inc()
		c.Loading = false
	}
}

func (e *Engine) chunkSaved(r persistence.ChunkSaved) {
	c, ok := e.world.Chunk(r.Coord)
	if !ok {
		return
	}
	c.Flushing = false
	if r.Err != nil {
		e.log.Error("Сброс чанка %v не удался: %v", r.Coord, r.Err)
		e.metrics.PersistenceFailures.WithLabelValues("save_chunk").Inc()
		return
	}
	if c.Version != r.Version {
		// чанк изменился во время сброса, попробуем позже
		return
	}
	c.Dirty = false
	if !c.Occupied() && !e.interest.Watched(r.Coord) && c.Settlement == "" {
		e.world.RemoveChunk(r.Coord)
	}
}
