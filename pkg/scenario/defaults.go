package scenario

// DefaultScenarios returns the built-in scenario set used to seed an empty
// store: menu queries, order history, ambiguous requests, edge cases, and a
// multi-turn conversation. Each covers one category of assistant behavior.
func DefaultScenarios() []*Scenario {
	return []*Scenario{
		{
			Name:        "menu_item_count",
			Category:    "menu_query",
			Description: "Count the items currently on the menu",
			Priority:    PriorityHigh,
			Tags:        []string{"menu", "count"},
			Context: map[string]any{
				"persona":    "restaurant manager",
				"restaurant": "Downtown Bistro",
			},
			InitialQueryHints: []string{"How many items are on the menu?"},
			SuccessConditions: []Condition{
				{ResponseMatches: `\d+`},
				{NoFallbacks: true},
			},
			MaxTurns: 1,
			Validation: Requirements{
				DatabaseValidation: true,
			},
		},
		{
			Name:        "disable_menu_item",
			Category:    "menu_update",
			Description: "Disable a named menu item and confirm the change",
			Priority:    PriorityHigh,
			Tags:        []string{"menu", "mutation"},
			Context: map[string]any{
				"persona":    "restaurant manager",
				"restaurant": "Downtown Bistro",
			},
			InitialQueryHints:  []string{"Disable the Caesar Salad"},
			FollowUpQueries:    []string{"Is the Caesar Salad still available?"},
			TerminationPhrases: []string{"has been disabled"},
			SuccessConditions: []Condition{
				{ResponseContains: "caesar salad"},
			},
			MaxTurns: 2,
			Validation: Requirements{
				DatabaseValidation: true,
				PhraseValidation:   true,
				RequiredPhrases:    []any{"caesar salad"},
			},
		},
		{
			Name:        "orders_yesterday",
			Category:    "order_history",
			Description: "Count yesterday's orders",
			Priority:    PriorityHigh,
			Tags:        []string{"orders", "count"},
			Context: map[string]any{
				"persona":    "restaurant owner",
				"restaurant": "Downtown Bistro",
			},
			InitialQueryHints: []string{
				"How many orders did we get yesterday?",
				"What was yesterday's order count?",
			},
			SuccessConditions: []Condition{
				{ResponseMatches: `\d+`},
				{ResponseTimeBelow: 5.0},
			},
			MaxTurns: 1,
			Validation: Requirements{
				DatabaseValidation: true,
			},
		},
		{
			Name:        "ambiguous_item_request",
			Category:    "edge_cases",
			Description: "A vague item request should trigger a clarification question",
			Priority:    PriorityMedium,
			Tags:        []string{"ambiguous", "edge"},
			Ambiguous:   true,
			Context: map[string]any{
				"persona":    "restaurant manager",
				"restaurant": "Downtown Bistro",
			},
			InitialQueryHints: []string{"Update the item"},
			SuccessConditions: []Condition{
				{ResponseContains: "clarify"},
			},
			MaxTurns: 2,
			Validation: Requirements{
				PhraseValidation: true,
				RequiredPhrases:  []any{map[string]any{"phrase": "clarify"}},
			},
		},
		{
			Name:        "empty_result_date",
			Category:    "edge_cases",
			Description: "Querying a date with no orders should say so, not invent numbers",
			Priority:    PriorityMedium,
			Tags:        []string{"orders", "edge", "empty"},
			Context: map[string]any{
				"persona":    "restaurant owner",
				"restaurant": "Downtown Bistro",
			},
			InitialQueryHints: []string{"How many orders on 2019-02-30?"},
			SuccessConditions: []Condition{
				{Expression: `!is_fallback && response != ""`},
			},
			MaxTurns: 1,
			Validation: Requirements{
				DatabaseValidation: true,
			},
		},
		{
			Name:        "revenue_drill_down",
			Category:    "multi_turn",
			Description: "Multi-turn drill-down from total revenue to the top item",
			Priority:    PriorityMedium,
			Tags:        []string{"orders", "revenue", "multi-turn"},
			Context: map[string]any{
				"persona":    "restaurant owner",
				"restaurant": "Downtown Bistro",
			},
			InitialQueryHints: []string{"What was our revenue last week?"},
			FollowUpQueries: []string{
				"Which day was the best?",
				"And what was the top selling item that day?",
			},
			SuccessConditions: []Condition{
				{ResponseMatches: `\$?\d`},
				{NoFallbacks: true},
			},
			MaxTurns: 4,
			Validation: Requirements{
				DatabaseValidation: true,
			},
		},
	}
}
