package engine

type opKind uint8

const (
	opCommon opKind = iota
	opRemove
	opAdd
)

// diffOp is one step of an alignment. old and new are positions in the
// respective sequences; the unused one is -1.
type diffOp struct {
	kind opKind
	old  int
	new  int
}

// diffNames aligns two node-name sequences by longest common subsequence.
//
// Walking both sequences forward, equal names always match, so duplicate
// names pair with their earliest unmatched occurrences. When skipping
// either side keeps the same LCS length, the old element is removed before
// the new one is added.
//
// Ops are returned in walk order: old positions of commons and removes
// ascend, as do new positions of commons and adds.
func diffNames(a, b []string) []diffOp {
	n, m := len(a), len(b)
	w := m + 1
	// lcs[i*w+j] is the LCS length of a[i:] and b[j:].
	lcs := make([]int, (n+1)*w)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i*w+j] = lcs[(i+1)*w+j+1] + 1
			} else {
				lcs[i*w+j] = max(lcs[(i+1)*w+j], lcs[i*w+j+1])
			}
		}
	}

	ops := make([]diffOp, 0, max(n, m))
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, diffOp{kind: opCommon, old: i, new: j})
			i++
			j++
		case lcs[(i+1)*w+j] >= lcs[i*w+j+1]:
			ops = append(ops, diffOp{kind: opRemove, old: i, new: -1})
			i++
		default:
			ops = append(ops, diffOp{kind: opAdd, old: -1, new: j})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, diffOp{kind: opRemove, old: i, new: -1})
	}
	for ; j < m; j++ {
		ops = append(ops, diffOp{kind: opAdd, old: -1, new: j})
	}
	return ops
}
