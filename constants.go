package blackjacktable

const (
	// General
	UnsetValue = -1

	// GameMode
	GameMode_PVE = "pve" // 玩家對莊家
	GameMode_PVP = "pvp" // 多人同桌

	// Blackjack
	BlackjackValue    = 21
	DealerStandValue  = 17
	CardsPerDeck      = 52
	MaxHandsPerPlayer = 4
)
