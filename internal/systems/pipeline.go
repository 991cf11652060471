// Package systems содержит конвейер систем, изменяющих мир раз в тик,
// и игровые действия, которые вызываются обработчиками команд.
package systems

import (
	"fmt"
	"runtime/debug"

	"github.com/annel0/wildlands/internal/logging"
)

// System одна стадия конвейера
type System interface {
	Name() string
	Run(ctx *Context) error
}

// Pipeline выполняет системы в фиксированном порядке.
// Ошибка или паника одной системы не прерывает тик.
type Pipeline struct {
	systems   []System
	log       *logging.Logger
	OnFailure func(system string)
}

// NewPipeline создаёт стандартный конвейер:
// выживание, крафт, квесты, достижения, спавн, барьер, смерть.
func NewPipeline() *Pipeline {
	return NewPipelineWith(
		Survival{},
		Crafting{},
		Quests{},
		Achievements{},
		Spawning{},
		Barrier{},
		Death{},
	)
}

// NewPipelineWith конвейер из произвольного набора систем
func NewPipelineWith(systems ...System) *Pipeline {
	return &Pipeline{systems: systems, log: logging.GetEngineLogger()}
}

// Names порядок систем
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.systems))
	for i, s := range p.systems {
		out[i] = s.Name()
	}
	return out
}

// Run выполняет все системы по порядку
func (p *Pipeline) Run(ctx *Context) {
	for _, s := range p.systems {
		if err := Isolate(s.Name(), func() error { return s.Run(ctx) }); err != nil {
			p.log.Error("система %s, тик %d: %v", s.Name(), ctx.Tick, err)
			if p.OnFailure != nil {
				p.OnFailure(s.Name())
			}
		}
	}
}

// Isolate выполняет fn, превращая панику в ошибку
func Isolate(unit string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", unit, r, debug.Stack())
		}
	}()
	return fn()
}
