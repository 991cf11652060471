// Package protocol описывает JSON-протокол между клиентом и сервером.
// Клиент шлёт конверты {type, data}, а сервер объекты {type, ...}.
package protocol

// Version версия протокола, отправляется в welcome
const Version = "1.0"

// Типы сообщений клиент -> сервер
const (
	TypeInput       = "input"
	TypeSpawn       = "spawn"
	TypeCraft       = "craft"
	TypeTrade       = "trade"
	TypeNpcAction   = "npcAction"
	TypeAcceptQuest = "acceptQuest"
	TypeSlot        = "slot"
	TypeSwapSlots   = "swapSlots"
	TypeName        = "name"
)

// Типы сообщений сервер -> клиент
const (
	TypeWelcome        = "welcome"
	TypeSessionRevoked = "sessionRevoked"
	TypeChunkAdd       = "chunkAdd"
	TypeChunkRemove    = "chunkRemove"
	TypeEntityDelta    = "entityDelta"
	TypeAchievement    = "achievement"
	TypeNotification   = "notification"
	TypeNpcInteraction = "npcInteraction"
	TypeQuestUpdate    = "questUpdate"
)

// Действия во input
const (
	ActionGather = "gather"
	ActionAttack = "attack"
	ActionUse    = "use"
)

// Действия NPC
const (
	NpcTalk   = "talk"
	NpcTurnIn = "turnIn"
)
