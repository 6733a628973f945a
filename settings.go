package blackjacktable

// Rules 賭桌規則參數
type Rules struct {
	NumberOfDecks         int     `json:"number_of_decks" yaml:"number_of_decks"`
	InitialChips          int     `json:"initial_chips" yaml:"initial_chips"`
	MinBet                int     `json:"min_bet" yaml:"min_bet"`
	MaxBet                int     `json:"max_bet" yaml:"max_bet"`
	BlackjackPayout       float64 `json:"blackjack_payout" yaml:"blackjack_payout"`                 // 天生 Blackjack 賠率 (預設 3:2)
	DealerHitsSoft17      bool    `json:"dealer_hits_soft_17" yaml:"dealer_hits_soft_17"`           // 莊家軟 17 是否補牌
	AllowDoubleAfterSplit bool    `json:"allow_double_after_split" yaml:"allow_double_after_split"` // 分牌後可否加倍
	AllowSurrender        bool    `json:"allow_surrender" yaml:"allow_surrender"`
	MaxSplits             int     `json:"max_splits" yaml:"max_splits"`
	DeckResetThreshold    int     `json:"deck_reset_threshold" yaml:"deck_reset_threshold"` // 牌靴重洗門檻
	MaxSeats              int     `json:"max_seats" yaml:"max_seats"`
}

func NewDefaultRules() *Rules {
	return &Rules{
		NumberOfDecks:         1,
		InitialChips:          1000,
		MinBet:                10,
		MaxBet:                500,
		BlackjackPayout:       1.5,
		DealerHitsSoft17:      false,
		AllowDoubleAfterSplit: true,
		AllowSurrender:        true,
		MaxSplits:             3,
		DeckResetThreshold:    15,
		MaxSeats:              5,
	}
}

// RuleOverrides 伺服器設定檔可覆寫的規則子集
type RuleOverrides struct {
	NumberOfDecks         *int     `json:"number_of_decks,omitempty" yaml:"number_of_decks"`
	BlackjackPayout       *float64 `json:"blackjack_payout,omitempty" yaml:"blackjack_payout"`
	DealerHitsSoft17      *bool    `json:"dealer_hits_soft_17,omitempty" yaml:"dealer_hits_soft_17"`
	AllowDoubleAfterSplit *bool    `json:"allow_double_after_split,omitempty" yaml:"allow_double_after_split"`
	AllowSurrender        *bool    `json:"allow_surrender,omitempty" yaml:"allow_surrender"`
	MaxSplits             *int     `json:"max_splits,omitempty" yaml:"max_splits"`
}

// Apply returns a copy of the base rules with the overridden fields replaced.
// Bet bounds and chip amounts are table policy and can not be overridden.
func (o *RuleOverrides) Apply(base *Rules) *Rules {
	rules := *base
	if o == nil {
		return &rules
	}

	if o.NumberOfDecks != nil && *o.NumberOfDecks >= 1 {
		rules.NumberOfDecks = *o.NumberOfDecks
	}
	if o.BlackjackPayout != nil && *o.BlackjackPayout > 0 {
		rules.BlackjackPayout = *o.BlackjackPayout
	}
	if o.DealerHitsSoft17 != nil {
		rules.DealerHitsSoft17 = *o.DealerHitsSoft17
	}
	if o.AllowDoubleAfterSplit != nil {
		rules.AllowDoubleAfterSplit = *o.AllowDoubleAfterSplit
	}
	if o.AllowSurrender != nil {
		rules.AllowSurrender = *o.AllowSurrender
	}
	if o.MaxSplits != nil && *o.MaxSplits >= 0 {
		rules.MaxSplits = *o.MaxSplits
	}
	return &rules
}

type JoinPlayer struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	RedeemChips int    `json:"redeem_chips"`
}
