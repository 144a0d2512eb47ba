// internal/browser/dom/resultset.go
package dom

// ResultSet is an ordered sequence of nodes produced by a query.
// Chained queries keep the order of their inputs; nodes are not re-sorted.
type ResultSet struct {
	nodes []*Node
	trace *Trace
}

// NewResultSet wraps nodes. trace may be nil.
func NewResultSet(nodes []*Node, trace *Trace) *ResultSet {
	return &ResultSet{nodes: nodes, trace: trace}
}

func (rs *ResultSet) Len() int { return len(rs.nodes) }

// At returns the node at i, or nil when i is out of range.
func (rs *ResultSet) At(i int) *Node {
	if i < 0 || i >= len(rs.nodes) {
		return nil
	}
	return rs.nodes[i]
}

// Nodes returns a copy of the members.
func (rs *ResultSet) Nodes() []*Node {
	return append([]*Node(nil), rs.nodes...)
}

func (rs *ResultSet) Trace() *Trace { return rs.trace }

// First returns the first member or an EmptyResultError naming the query.
func (rs *ResultSet) First() (*Node, error) {
	if len(rs.nodes) == 0 {
		return nil, &EmptyResultError{Trace: rs.trace}
	}
	return rs.nodes[0], nil
}

// Only returns the single member.
func (rs *ResultSet) Only() (*Node, error) {
	switch len(rs.nodes) {
	case 0:
		return nil, &EmptyResultError{Trace: rs.trace}
	case 1:
		return rs.nodes[0], nil
	}
	return nil, &TooManyResultsError{Trace: rs.trace, Count: len(rs.nodes)}
}

// CSS runs selector on every member and concatenates the results.
func (rs *ResultSet) CSS(selector string) (*ResultSet, error) {
	sel, err := compileCSS(selector)
	if err != nil {
		return nil, err
	}
	var out []*Node
	for _, n := range rs.nodes {
		out = append(out, n.matchCSS(sel)...)
	}
	return NewResultSet(out, rs.trace.Chain("css", selector)), nil
}

// XPath evaluates expr against every member and concatenates the results.
func (rs *ResultSet) XPath(expr string) (*ResultSet, error) {
	compiled, err := compileXPath(expr)
	if err != nil {
		return nil, err
	}
	var out []*Node
	for _, n := range rs.nodes {
		out = append(out, n.matchXPath(compiled)...)
	}
	return NewResultSet(out, rs.trace.Chain("xpath", expr)), nil
}

// TextContent returns the normalized text of every member.
func (rs *ResultSet) TextContent() []string {
	out := make([]string, len(rs.nodes))
	for i, n := range rs.nodes {
		out[i] = n.Text()
	}
	return out
}

// Parents returns the distinct element parents in first-seen order.
func (rs *ResultSet) Parents() *ResultSet {
	var parents []*Node
	for _, n := range rs.nodes {
		if p := n.Parent(); p != nil {
			parents = append(parents, p)
		}
	}
	return NewResultSet(dedupe(parents), rs.trace.Chain("parents"))
}

// Unique drops repeated nodes, keeping the first occurrence.
func (rs *ResultSet) Unique() *ResultSet {
	return NewResultSet(dedupe(rs.nodes), rs.trace)
}

// Filter keeps the members for which keep returns true.
func (rs *ResultSet) Filter(keep func(*Node) bool) *ResultSet {
	var out []*Node
	for _, n := range rs.nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return NewResultSet(out, rs.trace.Chain("filter"))
}

// Contains reports whether n is a member.
func (rs *ResultSet) Contains(n *Node) bool {
	for _, m := range rs.nodes {
		if m.Equal(n) {
			return true
		}
	}
	return false
}

func dedupe(nodes []*Node) []*Node {
	seen := make(map[*Node]bool, len(nodes))
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
