package disagreement

// opposingSides names the two keyword sides of one opposing-pattern group.
type opposingSides struct {
	sideNames []string
	sideWords [][]string
}

// opposingPatterns names the architectural trade-offs the pattern-conflict
// sub-detector scans for, each with side-specific keyword lists.
var opposingPatterns = map[string]opposingSides{
	"sync_vs_async": {
		sideNames: []string{"sync", "async"},
		sideWords: [][]string{
			{"synchronous", "sync", "real-time", "immediate", "blocking"},
			{"asynchronous", "async", "eventual consistency", "non-blocking", "queue"},
		},
	},
	"monolith_vs_microservices": {
		sideNames: []string{"monolith", "microservices"},
		sideWords: [][]string{
			{"monolithic", "single application", "tightly coupled"},
			{"microservices", "distributed", "loosely coupled", "service mesh"},
		},
	},
	"sql_vs_nosql": {
		sideNames: []string{"sql", "nosql"},
		sideWords: [][]string{
			{"relational", "sql", "acid", "normalized"},
			{"nosql", "document store", "key-value", "eventually consistent"},
		},
	},
	"rest_vs_graphql": {
		sideNames: []string{"rest", "graphql"},
		sideWords: [][]string{
			{"rest", "restful", "resource-based"},
			{"graphql", "query language", "single endpoint"},
		},
	},
	"cost_vs_performance": {
		sideNames: []string{"cost_optimized", "performance_optimized"},
		sideWords: [][]string{
			{"cost-effective", "economical", "budget", "cheaper"},
			{"high performance", "low latency", "fast", "optimized for speed"},
		},
	},
}

// patternOrder fixes iteration order so output is deterministic.
var patternOrder = []string{
	"sync_vs_async", "monolith_vs_microservices", "sql_vs_nosql",
	"rest_vs_graphql", "cost_vs_performance",
}
