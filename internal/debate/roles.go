package debate

// Fixed role sets for the two debates the pipeline runs. The closed set keeps
// role selection a configuration concern rather than a runtime one.

// InvestmentRoles are the opposing voices of the bull/bear debate.
func InvestmentRoles() []Role {
	return []Role{
		{
			Name:    "Bull Analyst",
			Charter: "You are the bull analyst. You argue the strongest credible case for taking a long position.",
			Stance:  "Press the upside: growth drivers, favorable data points, and why the bear's concerns are overstated.",
		},
		{
			Name:    "Bear Analyst",
			Charter: "You are the bear analyst. You argue the strongest credible case against taking a long position.",
			Stance:  "Press the downside: risks, deteriorating data points, and why the bull's optimism is unearned.",
		},
	}
}

// InvestmentJudge is the research manager who ends the bull/bear debate.
func InvestmentJudge() Judge {
	return Judge{
		Name:    "Research Manager",
		Charter: "You are a senior research manager who weighs bull and bear arguments and commits to an investment stance.",
		Instruction: `Weigh the strength of evidence on both sides and commit to a stance with clear rationale.
Do not split the difference by default; HOLD must be earned by genuinely balanced evidence.
End your ruling with these lines:
DECISION: BUY, SELL, or HOLD
CONFIDENCE: a number between 0.00 and 1.00`,
	}
}

// RiskRoles are the three voices of the risk debate over the draft plan.
func RiskRoles() []Role {
	return []Role{
		{
			Name:    "Aggressive Analyst",
			Charter: "You are the aggressive risk analyst. You advocate for capturing the opportunity in the draft plan.",
			Stance:  "Argue why the plan's risk is acceptable or should be increased; challenge excessive caution.",
		},
		{
			Name:    "Conservative Analyst",
			Charter: "You are the conservative risk analyst. You advocate for capital preservation above all.",
			Stance:  "Argue where the plan could lose money, what could go wrong, and why exposure should shrink.",
		},
		{
			Name:    "Neutral Analyst",
			Charter: "You are the neutral risk analyst. You weigh both risk appetites against the evidence.",
			Stance:  "Arbitrate between the aggressive and conservative views; call out which of their points actually hold.",
		},
	}
}

// RiskJudge ends the risk debate and may override the draft plan's action.
func RiskJudge() Judge {
	return Judge{
		Name:    "Risk Judge",
		Charter: "You are the risk judge with final authority over whether the draft trading plan stands.",
		Instruction: `Stress-test the draft plan against the debate. Classify the position's risk and decide
whether the plan's action stands. End your ruling with these lines:
RISK: low, medium, or high
CONFIDENCE: a number between 0.00 and 1.00
OVERRIDE: BUY, SELL, or HOLD - include this line ONLY if the plan's action must change; omit it entirely if the plan stands`,
	}
}
