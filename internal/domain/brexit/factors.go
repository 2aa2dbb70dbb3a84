// Package brexit is the UK Brexit decision model: the factors of each
// subdomain and the tree of negotiations and hidden decisions evaluated under
// every Brexit option.
package brexit

import (
	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
)

// Agents
const (
	UK = "UK"
	EU = "EU"
	NI = "NI"
)

// Subdomains
const (
	SubBrexit      = "brexit"
	SubIreland     = "ireland"
	SubTrade       = "trade"
	SubImmigration = "immigration"
	SubBudget      = "budget"
)

// Brexit options
const (
	Remain = "remain"
	Deal   = "deal"
	NoDeal = "noDeal"
)

// EU negotiation options
const (
	MarketAndMovement  = "marketAndMovement"
	OnlyMarket         = "onlyMarket"
	OnlyMovement       = "onlyMovement"
	NoMarketNoMovement = "noMarketNoMovement"
)

// Irish border options
const (
	HardBorder    = "hardBorder"
	BrokenBorder  = "brokenBorder"
	SeaBorder     = "seaBorder"
	UnitedIreland = "unitedIreland"
	OpenBorder    = "openBorder"
)

func brexitFactors() factor.Subdomain {
	return factor.NewSubdomain(SubBrexit,
		&factor.Factor{
			Key:   "brexitApproval",
			Kind:  factor.KindOption,
			Title: "Brexit decision",
			Options: []factor.Option{
				{Key: Remain, Label: "Remain"},
				{Key: Deal, Label: "Deal"},
				{Key: NoDeal, Label: "No-deal"},
			},
			DecidedBy: []string{UK},
		},
		&factor.Factor{
			Key:      "noDealDisruptions",
			Kind:     factor.KindBoolean,
			Title:    "Short term disruptions",
			ValuedBy: []string{UK},
			Rule: &factor.Rule{
				DependsOn: []string{"brexitApproval"},
				Derive: func(s scenario.Scenario) (any, error) {
					approval, err := s.Option("brexitApproval")
					return approval == NoDeal, err
				},
			},
		},
		&factor.Factor{
			Key:   "marketMovement",
			Kind:  factor.KindOption,
			Title: "EU negotiation",
			Options: []factor.Option{
				{Key: MarketAndMovement, Label: "Single market and freedom of movement"},
				{Key: OnlyMarket, Label: "Only single market"},
				{Key: OnlyMovement, Label: "Only freedom of movement"},
				{Key: NoMarketNoMovement, Label: "No single market and no freedom of movement"},
			},
			DecidedBy: []string{UK, EU},
		},
		&factor.Factor{
			Key:    "singleMarket",
			Kind:   factor.KindBoolean,
			Title:  "Single market",
			Manual: true,
			Rule: &factor.Rule{
				DependsOn: []string{"marketMovement"},
				Derive: func(s scenario.Scenario) (any, error) {
					mm, err := s.Option("marketMovement")
					return inSingleMarket(mm), err
				},
			},
		},
		&factor.Factor{
			Key:    "freedomOfMovement",
			Kind:   factor.KindBoolean,
			Title:  "Freedom of movement",
			Manual: true,
			Rule: &factor.Rule{
				DependsOn: []string{"marketMovement"},
				Derive: func(s scenario.Scenario) (any, error) {
					mm, err := s.Option("marketMovement")
					return hasFreedomOfMovement(mm), err
				},
			},
		},
		&factor.Factor{
			Key:      "transitionPeriod",
			Kind:     factor.KindUntil2030Interval,
			Title:    "Transition period",
			Elicited: true,
		},
		&factor.Factor{
			Key:    "ukInEu",
			Kind:   factor.KindBoolean,
			Title:  "EU membership",
			Manual: true,
			Rule: &factor.Rule{
				DependsOn: []string{"brexitApproval"},
				Derive: func(s scenario.Scenario) (any, error) {
					approval, err := s.Option("brexitApproval")
					return approval == Remain, err
				},
			},
		},
	)
}

func irelandFactors() factor.Subdomain {
	return factor.NewSubdomain(SubIreland,
		&factor.Factor{
			Key:   "irishBorder",
			Kind:  factor.KindOption,
			Title: "Irish borders",
			Options: []factor.Option{
				{Key: HardBorder, Label: "Hard border"},
				{Key: BrokenBorder, Label: "EU-UK border broken in Ireland"},
				{Key: SeaBorder, Label: "Irish Sea border"},
				{Key: UnitedIreland, Label: "United Ireland in the EU"},
				{Key: OpenBorder, Label: "Open Irish border in the EU"},
			},
			DecidedBy: []string{NI, UK, EU},
			ValuedBy:  []string{NI, UK, EU},
		},
		&factor.Factor{
			Key:         "violenceNiByOption",
			Kind:        factor.KindThreePoint,
			Title:       "Violence in Northern Ireland by border arrangement",
			OptionsFrom: "irishBorder",
			MergeInto:   "violenceNi",
			Elicited:    true,
		},
		&factor.Factor{
			Key:      "violenceNi",
			Kind:     factor.KindUnitInterval,
			Title:    "Violence in Northern Ireland",
			ValuedBy: []string{NI, UK, EU},
			Rule: &factor.Rule{
				DependsOn: []string{"violenceNiByOption", "irishBorder"},
				Derive: func(s scenario.Scenario) (any, error) {
					border, err := s.Option("irishBorder")
					if err != nil {
						return nil, err
					}
					byOption, err := s.Estimates("violenceNiByOption")
					if err != nil {
						return nil, err
					}
					return byOption[border].Expected(), nil
				},
			},
		},
		&factor.Factor{
			Key:      "brokenDeal",
			Kind:     factor.KindBoolean,
			Title:    "Irish border Brexit deal is broken",
			ValuedBy: []string{NI, UK, EU},
			Rule: &factor.Rule{
				DependsOn: []string{"brexitApproval", "irishBorder"},
				Derive: func(s scenario.Scenario) (any, error) {
					approval, err := s.Option("brexitApproval")
					if err != nil {
						return nil, err
					}
					border, err := s.Option("irishBorder")
					return approval == Deal && border == HardBorder, err
				},
			},
		},
	)
}

func tradeFactors() factor.Subdomain {
	return factor.NewSubdomain(SubTrade,
		&factor.Factor{
			Key:      "euTradeAccess",
			Kind:     factor.KindBoolean,
			Title:    "Frictionless trade with the EU",
			ValuedBy: []string{UK, EU},
			Rule:     copyOf("singleMarket"),
		},
	)
}

func immigrationFactors() factor.Subdomain {
	return factor.NewSubdomain(SubImmigration,
		&factor.Factor{
			Key:      "euMigration",
			Kind:     factor.KindBoolean,
			Title:    "Free EU migration to the UK",
			ValuedBy: []string{UK, EU},
			Rule:     copyOf("freedomOfMovement"),
		},
	)
}

func budgetFactors() factor.Subdomain {
	return factor.NewSubdomain(SubBudget,
		&factor.Factor{
			Key:       "billIntention",
			Kind:      factor.KindBoolean,
			Title:     "UK intends to pay the divorce bill",
			DecidedBy: []string{UK},
		},
		&factor.Factor{
			Key:      "divorceBillPaid",
			Kind:     factor.KindBoolean,
			Title:    "Divorce bill paid",
			ValuedBy: []string{UK, EU},
			Rule:     copyOf("billIntention"),
		},
		&factor.Factor{
			Key:      "euGoodwill",
			Kind:     factor.KindBoolean,
			Title:    "EU goodwill towards the UK",
			ValuedBy: []string{UK},
			Rule: &factor.Rule{
				DependsOn: []string{"billIntention", "ukInEu"},
				Derive: func(s scenario.Scenario) (any, error) {
					bill, err := s.Bool("billIntention")
					if err != nil {
						return nil, err
					}
					inEu, err := s.Bool("ukInEu")
					return bill || inEu, err
				},
			},
		},
	)
}

func copyOf(key string) *factor.Rule {
	return &factor.Rule{
		DependsOn: []string{key},
		Derive: func(s scenario.Scenario) (any, error) {
			return s.Bool(key)
		},
	}
}

func inSingleMarket(mm string) bool {
	return mm == MarketAndMovement || mm == OnlyMarket
}

func hasFreedomOfMovement(mm string) bool {
	return mm == MarketAndMovement || mm == OnlyMovement
}

// NewRegistry builds the validated factor registry of the model.
// Every call returns fresh factors.
func NewRegistry() (*factor.Registry, error) {
	return factor.NewRegistry(
		brexitFactors(),
		irelandFactors(),
		tradeFactors(),
		immigrationFactors(),
		budgetFactors(),
	)
}
