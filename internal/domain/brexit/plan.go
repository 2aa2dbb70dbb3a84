package brexit

import (
	"gitarg/internal/domain/scenario"
	decisionservice "gitarg/internal/services/decision"
)

// Decision is the key of the top-level factor
const Decision = "brexitApproval"

// Model returns the decision tree evaluated under every Brexit option.
//
// While the UK stays in the EU the Irish border stays open and both EU
// memberships continue; otherwise both are negotiated. Inside the EU
// negotiation the UK privately decides whether it intends to pay the divorce
// bill. A deal is blended towards remain by the elicited transition period.
func Model() decisionservice.Model {
	return decisionservice.Model{
		Decision: Decision,
		Assign: func(choice any, s scenario.Scenario) error {
			s["ukInEu"] = choice == Remain
			return nil
		},
		Plan: decisionservice.Plan{
			Stages: []decisionservice.Stage{
				{Negotiation: irishBorderNegotiation()},
				{Negotiation: euNegotiation()},
			},
			Subdomains: []string{SubBrexit},
		},
		Continuum: &decisionservice.Continuum{
			Partial:  Deal,
			Limit:    Remain,
			Fraction: "transitionPeriod",
		},
	}
}

func irishBorderNegotiation() *decisionservice.Negotiation {
	return &decisionservice.Negotiation{
		Factor:  "irishBorder",
		Exclude: []string{OpenBorder},
		Settled: settledInEu(OpenBorder),
		Plan:    decisionservice.Plan{Subdomains: []string{SubIreland}},
	}
}

func euNegotiation() *decisionservice.Negotiation {
	return &decisionservice.Negotiation{
		Factor:  "marketMovement",
		Settled: settledInEu(MarketAndMovement),
		Assign: func(choice any, s scenario.Scenario) error {
			mm, _ := choice.(string)
			s["singleMarket"] = inSingleMarket(mm)
			s["freedomOfMovement"] = hasFreedomOfMovement(mm)
			return nil
		},
		Plan: decisionservice.Plan{
			Stages: []decisionservice.Stage{
				{Decision: billDecision()},
			},
		},
	}
}

func billDecision() *decisionservice.SubDecision {
	return &decisionservice.SubDecision{
		Factor: "billIntention",
		// remaining members have no bill to intend
		Feasible: func(s scenario.Scenario, choice any) bool {
			approval, _ := s.Option(Decision)
			return !(approval == Remain && choice == true)
		},
		Plan: decisionservice.Plan{
			Subdomains: []string{SubTrade, SubImmigration, SubBudget},
		},
	}
}

func settledInEu(option string) func(s scenario.Scenario) (string, bool, error) {
	return func(s scenario.Scenario) (string, bool, error) {
		inEu, err := s.Bool("ukInEu")
		if err != nil {
			return "", false, err
		}
		return option, inEu, nil
	}
}
