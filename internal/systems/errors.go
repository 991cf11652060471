package systems

import "errors"

// Ошибки команд: корректный кадр, но недопустимое игровое состояние.
// Команда не применяется, игрок получает уведомление.
var (
	ErrNotSpawned        = errors.New("player is not spawned")
	ErrAlreadySpawned    = errors.New("already spawned")
	ErrRespawnCooldown   = errors.New("respawn cooldown is running")
	ErrUnknownRecipe     = errors.New("unknown recipe")
	ErrInsufficientItems = errors.New("insufficient items")
	ErrInventoryFull     = errors.New("inventory is full")
	ErrNotConsumable     = errors.New("item cannot be used")
	ErrUnknownQuest      = errors.New("unknown quest")
	ErrQuestActive       = errors.New("quest already active")
	ErrQuestCompleted    = errors.New("quest already completed")
	ErrQuestNotReady     = errors.New("quest objectives are not complete")
	ErrWrongNPC          = errors.New("this npc does not take that quest")
	ErrUnknownTarget     = errors.New("unknown target")
	ErrOutOfRange        = errors.New("target is out of range")
	ErrTargetProtected   = errors.New("target is inside a safe zone")
	ErrInvalidName       = errors.New("invalid name")
	ErrChunkNotReady     = errors.New("chunk is still loading")
)
