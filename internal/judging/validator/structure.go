package validator

import (
	"fmt"

	"algojudge/internal/judging/model"
	"algojudge/internal/judging/traversal"
)

// checkStructuralSafety rejects list and tree outputs that look like the
// serialization of a cyclic structure.
func checkStructuralSafety(user any, ctx *model.Context) model.Outcome {
	if ctx == nil {
		return model.Pass()
	}
	values, ok := decodedArray(user)
	if !ok {
		return model.Pass()
	}
	switch ctx.NodeType {
	case model.NodeList:
		if !traversal.WithinSafeBounds(values) {
			return model.Fail(fmt.Sprintf("List output exceeds maximum safe size (%d elements). Possible cycle in output.", traversal.MaxListSize))
		}
		if traversal.HasRepeatingRun(values, traversal.RepeatWindow) {
			return model.Fail("List output contains suspicious repeating pattern. Possible cycle in output.")
		}
	case model.NodeTree:
		if !traversal.WithinSafeBounds(values) {
			return model.Fail(fmt.Sprintf("Tree output exceeds maximum safe size (%d elements). Possible structural issue.", traversal.MaxListSize))
		}
	}
	return model.Pass()
}

func checkLinkedListShape(user any) model.Outcome {
	values, ok := decodedArray(user)
	if !ok {
		return model.Pass()
	}
	if traversal.IsRightChain(traversal.BuildTree(values)) {
		return model.Pass()
	}
	return model.Fail("Output must be in linked list form (all left children null, only right pointers used). Got a tree with left children.")
}
