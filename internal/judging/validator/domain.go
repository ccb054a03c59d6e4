package validator

import (
	"encoding/json"
	"slices"

	"algojudge/internal/judging/jsonval"
	"algojudge/internal/judging/model"
)

const sudokuSize = 9

func checkSudoku(user any) model.Outcome {
	rows, ok := decodedArray(user)
	if !ok || len(rows) != sudokuSize {
		return model.Fail("Sudoku output must be a 9x9 grid (got invalid format)")
	}

	var grid [sudokuSize][sudokuSize]int64
	for r, row := range rows {
		cells, isArray := jsonval.Array(row)
		if !isArray || len(cells) != sudokuSize {
			return model.Failf("Sudoku row %d must have 9 elements", r)
		}
		for c, cell := range cells {
			v, isInt := jsonval.AsInt(cell)
			if !isInt {
				v = 0
			}
			if v < 1 || v > 9 {
				return model.Failf("Invalid digit at (%d,%d): %d", r, c, v)
			}
			grid[r][c] = v
		}
	}

	for r := 0; r < sudokuSize; r++ {
		var seen [10]bool
		for c := 0; c < sudokuSize; c++ {
			v := grid[r][c]
			if seen[v] {
				return model.Failf("Duplicate %d in row %d", v, r)
			}
			seen[v] = true
		}
	}
	for c := 0; c < sudokuSize; c++ {
		var seen [10]bool
		for r := 0; r < sudokuSize; r++ {
			v := grid[r][c]
			if seen[v] {
				return model.Failf("Duplicate %d in column %d", v, c)
			}
			seen[v] = true
		}
	}
	for box := 0; box < sudokuSize; box++ {
		br, bc := box/3, box%3
		var seen [10]bool
		for i := 0; i < sudokuSize; i++ {
			v := grid[br*3+i/3][bc*3+i%3]
			if seen[v] {
				return model.Failf("Duplicate %d in box (%d,%d)", v, br, bc)
			}
			seen[v] = true
		}
	}
	return model.Pass()
}

// adjacency reads a 1-indexed adjacency list of integer node ids.
func adjacency(v any) ([][]int64, bool) {
	rows, ok := decodedArray(v)
	if !ok {
		return nil, false
	}
	out := make([][]int64, len(rows))
	for i, row := range rows {
		cells, isArray := jsonval.Array(row)
		if !isArray {
			return nil, false
		}
		out[i] = make([]int64, len(cells))
		for j, cell := range cells {
			n, isNumber := cell.(json.Number)
			if !isNumber {
				return nil, false
			}
			id, err := n.Int64()
			if err != nil {
				return nil, false
			}
			out[i][j] = id
		}
	}
	return out, true
}

// checkDeepCopy is a structural proxy for a cloned graph: node references
// must be in range and every edge must be present from both ends. Output
// that is not an adjacency list is skipped.
func checkDeepCopy(user any) model.Outcome {
	if user == nil {
		return model.Fail("Deep copy validation failed: user output is null")
	}
	graph, ok := adjacency(user)
	if !ok {
		return model.Pass()
	}
	if len(graph) == 0 {
		return model.Fail("Deep copy validation failed: output graph is empty")
	}

	n := int64(len(graph))
	for i, neighbours := range graph {
		node := int64(i + 1)
		for _, nb := range neighbours {
			if nb < 1 || nb > n {
				return model.Failf("Deep copy validation failed: node %d references invalid neighbour %d (valid range: 1-%d)", node, nb, n)
			}
			if !slices.Contains(graph[nb-1], node) {
				return model.Failf("Deep copy validation failed: edge from node %d to node %d is not bidirectional (not an undirected graph)", node, nb)
			}
		}
	}
	return model.Pass()
}
