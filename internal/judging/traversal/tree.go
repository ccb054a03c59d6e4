// Package traversal builds binary trees from level-order arrays and inspects
// list and tree outputs for unsafe shapes.
package traversal

import "algojudge/internal/judging/jsonval"

// TreeNode is a binary tree node holding a decoded JSON value.
type TreeNode struct {
	Value any
	Left  *TreeNode
	Right *TreeNode
}

// BuildTree builds a tree from a level-order array. Each dequeued node takes
// the next slot as its left child and the one after as its right child; a
// null slot leaves that child absent.
func BuildTree(levelOrder []any) *TreeNode {
	if len(levelOrder) == 0 || jsonval.IsNull(levelOrder[0]) {
		return nil
	}
	root := &TreeNode{Value: levelOrder[0]}
	queue := []*TreeNode{root}
	i := 1
	for len(queue) > 0 && i < len(levelOrder) {
		current := queue[0]
		queue = queue[1:]

		if v := levelOrder[i]; !jsonval.IsNull(v) {
			current.Left = &TreeNode{Value: v}
			queue = append(queue, current.Left)
		}
		i++

		if i < len(levelOrder) {
			if v := levelOrder[i]; !jsonval.IsNull(v) {
				current.Right = &TreeNode{Value: v}
				queue = append(queue, current.Right)
			}
			i++
		}
	}
	return root
}

// ToLevelOrder serializes root breadth-first with trailing nulls trimmed.
func ToLevelOrder(root *TreeNode) []any {
	out := []any{}
	if root == nil {
		return out
	}
	queue := []*TreeNode{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, current.Value)
		queue = append(queue, current.Left, current.Right)
	}
	last := len(out) - 1
	for last >= 0 && out[last] == nil {
		last--
	}
	return out[:last+1]
}

// CountNodes returns the number of nodes under root.
func CountNodes(root *TreeNode) int {
	if root == nil {
		return 0
	}
	return 1 + CountNodes(root.Left) + CountNodes(root.Right)
}

// StructurallyEqual reports whether two trees have the same shape and values.
func StructurallyEqual(a, b *TreeNode) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !jsonval.Equal(a.Value, b.Value) {
		return false
	}
	return StructurallyEqual(a.Left, b.Left) && StructurallyEqual(a.Right, b.Right)
}

// IsRightChain reports whether every node on the right spine has no left
// child, i.e. the tree is in linked-list form.
func IsRightChain(root *TreeNode) bool {
	for current := root; current != nil; current = current.Right {
		if current.Left != nil {
			return false
		}
	}
	return true
}
