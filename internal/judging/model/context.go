// Package model holds the types shared by every judging phase.
package model

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// NodeType is a structural hint for outputs backed by linked structures.
type NodeType string

const (
	NodeNone  NodeType = "NONE"
	NodeTree  NodeType = "TREE_NODE"
	NodeList  NodeType = "LIST_NODE"
	NodeGraph NodeType = "GRAPH_NODE"
)

// ParseNodeType maps a stored node type; unknown values map to NodeNone.
func ParseNodeType(s string) NodeType {
	switch NodeType(strings.ToUpper(strings.TrimSpace(s))) {
	case NodeTree:
		return NodeTree
	case NodeList:
		return NodeList
	case NodeGraph:
		return NodeGraph
	default:
		return NodeNone
	}
}

// Strategy is how a submission is invoked.
type Strategy string

const (
	StrategyFunction Strategy = "FUNCTION"
	// StrategyClass drives a stateful object through a sequence of operations,
	// producing one result per operation.
	StrategyClass Strategy = "CLASS"
)

// ParseStrategy maps a stored execution strategy; unknown values map to
// StrategyFunction.
func ParseStrategy(s string) Strategy {
	if Strategy(strings.ToUpper(strings.TrimSpace(s))) == StrategyClass {
		return StrategyClass
	}
	return StrategyFunction
}

// Hint is a declarative validation token attached to a question.
type Hint string

const (
	HintLinearForm       Hint = "EXPECT_LINEAR_FORM"
	HintSudokuRules      Hint = "SUDOKU_RULES"
	HintRequireDeepCopy  Hint = "REQUIRE_DEEP_COPY"
	HintRoundTrip        Hint = "ROUND_TRIP"
	HintStatefulSequence Hint = "STATEFUL_SEQUENCE"
)

// Context describes how outputs of one question are judged. It is built once
// per question and language and must not be modified afterwards.
type Context struct {
	QuestionID          int64
	ReturnType          string
	EffectiveOutputType string
	NodeType            NodeType
	// OrderMatters is nil when unknown; unknown is treated as ordered.
	OrderMatters   *bool
	Strategy       Strategy
	MutationTarget string
	Hints          mapset.Set[Hint]
}

// HasHint reports whether h was declared for the question.
func (c *Context) HasHint(h Hint) bool {
	return c.Hints != nil && c.Hints.Contains(h)
}

// Unordered reports whether the question explicitly declares order-free output.
func (c *Context) Unordered() bool {
	return c.OrderMatters != nil && !*c.OrderMatters
}

// IsClass reports whether the submission is a design-class execution.
func (c *Context) IsClass() bool {
	return c.Strategy == StrategyClass
}

// ParseHints splits a comma separated hint list, dropping blanks.
func ParseHints(s string) mapset.Set[Hint] {
	hints := mapset.NewSet[Hint]()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hints.Add(Hint(part))
	}
	return hints
}
