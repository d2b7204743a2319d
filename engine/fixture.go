package engine

// Fixture 离线假数据，只给本地开发 UI 用，完全不经过引擎。
// 每次返回新的 map，调用方可以随意修改
func Fixture(gameID string) Snapshot {
	if gameID == "" {
		gameID = "test-123"
	}
	return Snapshot{
		"game_id":         gameID,
		"opponent_hp":     40,
		"opponent_max_hp": 100,
		"player_hp":       20,
		"player_max_hp":   50,
		"player_mana":     10,
		"last_action":     "Mock Data Loaded",
		"hand": []any{
			map[string]any{"id": "1", "name": "Slash", "cost": 2, "type": "attack", "description": "A quick strike."},
			map[string]any{"id": "2", "name": "Potion", "cost": 3, "type": "heal", "description": "Drink up!"},
		},
		"active_question": map[string]any{
			"id":       "q1",
			"text":     "What is 2 + 2?",
			"category": "Math",
			"options":  []any{"3", "4", "5", "6"},
		},
	}
}
