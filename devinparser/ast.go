package devinparser

// Position tracks a source location for tokens, nodes and errors.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number, counted in runes
	Offset int // 0-based byte offset into source
}

// NodeKind discriminates the Node tagged union.
type NodeKind string

const (
	NodeFile              NodeKind = "FILE"
	NodeFrontMatterHeader NodeKind = "FRONT_MATTER_HEADER"
	NodeAgentBlock        NodeKind = "AGENT_BLOCK"
	NodeCommandBlock      NodeKind = "COMMAND_BLOCK"
	NodeVariableBlock     NodeKind = "VARIABLE_BLOCK"
	NodeExpressionBlock   NodeKind = "EXPRESSION_BLOCK"
	NodeCodeBlock         NodeKind = "CODE_BLOCK"
	NodeComments          NodeKind = "COMMENTS"
	NodeText              NodeKind = "TEXT"
)

// Node is a parsed syntax tree node. Kind determines which payload field is
// populated; Text is set for TEXT and COMMENTS nodes.
type Node struct {
	Kind     NodeKind
	Pos      Position // position of the first token
	Start    int      // byte offset of the first token
	End      int      // byte offset just past the last token
	Children []*Node

	FrontMatter *FrontMatter // NodeFrontMatterHeader
	Agent       *Agent       // NodeAgentBlock
	Command     *Command     // NodeCommandBlock
	Variable    *Variable    // NodeVariableBlock
	Expression  *Expression  // NodeExpressionBlock
	Code        *Code        // NodeCodeBlock
	Text        string       // NodeText, NodeComments
}

// FrontMatter holds the ordered key/value pairs of a --- header.
type FrontMatter struct {
	Entries []FrontMatterEntry
	Closed  bool // closing --- was found
}

// FrontMatterEntry is one key: value line (plus any indented continuation lines).
type FrontMatterEntry struct {
	Key   string
	Raw   string // value text as written, YAML syntax
	Value Value
	Pos   Position
}

// Get looks up a front matter value by key. The last entry wins.
func (f *FrontMatter) Get(key string) (Value, bool) {
	for i := len(f.Entries) - 1; i >= 0; i-- {
		if f.Entries[i].Key == key {
			return f.Entries[i].Value, true
		}
	}
	return Value{}, false
}

// Keys returns the entry keys in source order.
func (f *FrontMatter) Keys() []string {
	keys := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Agent is an @name reference.
type Agent struct {
	Name   string
	Quoted bool // written as @"display name"
}

// Command is a /name: args instruction.
type Command struct {
	Name     string
	Args     string // remainder of the line, surrounding whitespace trimmed
	HasColon bool
}

// Variable is a $name reference or a $name = value assignment.
type Variable struct {
	Name  string
	Value *Value // nil for a bare reference
	Raw   string // right-hand side as written
}

// IsAssignment reports whether the variable block assigns a value.
func (v *Variable) IsAssignment() bool { return v.Value != nil }

// BranchKind names the arm of an expression block.
type BranchKind string

const (
	BranchIf      BranchKind = "if"
	BranchElseIf  BranchKind = "elseif"
	BranchElse    BranchKind = "else"
	BranchCase    BranchKind = "case"
	BranchDefault BranchKind = "default"
)

// Expression is an #if or #when block.
type Expression struct {
	Keyword  string // "if" or "when"
	Subject  string // #when subject identifier
	Branches []*Branch
	Closed   bool // matching #endif / #end was found
	Depth    int  // nesting depth, 0 at top level
}

// Condition returns the condition of the leading #if branch, or nil.
func (e *Expression) Condition() *Condition {
	if len(e.Branches) == 0 {
		return nil
	}
	return e.Branches[0].Condition
}

// Branch is one arm of an expression block and the nodes it guards.
type Branch struct {
	Kind      BranchKind
	Condition *Condition // if / elseif
	Match     *Value     // case
	Children  []*Node
	Pos       Position
}

// Condition is the guard of an #if or #elseif arm: a truthiness check of
// Subject, or Subject compared to Value with Op.
type Condition struct {
	Negated bool
	Subject string
	Op      string // "", "==" or "!="
	Value   *Value
	Raw     string
	Valid   bool
}

// Code is a fenced code region.
type Code struct {
	Language string
	Body     string
	Closed   bool
}

// Walk calls fn for n and every descendant in depth-first source order.
// Returning false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Find returns every node of the given kind under n, including n itself.
func Find(n *Node, kind NodeKind) []*Node {
	var result []*Node
	Walk(n, func(c *Node) bool {
		if c.Kind == kind {
			result = append(result, c)
		}
		return true
	})
	return result
}

// Header returns the front matter of a file node, or nil.
func (n *Node) Header() *FrontMatter {
	for _, c := range n.Children {
		if c.Kind == NodeFrontMatterHeader {
			return c.FrontMatter
		}
	}
	return nil
}

// Commands returns every command under n in source order.
func (n *Node) Commands() []*Command {
	var result []*Command
	for _, c := range Find(n, NodeCommandBlock) {
		result = append(result, c.Command)
	}
	return result
}

// Variables returns every variable block under n in source order.
func (n *Node) Variables() []*Variable {
	var result []*Variable
	for _, c := range Find(n, NodeVariableBlock) {
		result = append(result, c.Variable)
	}
	return result
}

// Agents returns every agent reference under n in source order.
func (n *Node) Agents() []*Agent {
	var result []*Agent
	for _, c := range Find(n, NodeAgentBlock) {
		result = append(result, c.Agent)
	}
	return result
}

// CodeBlocks returns every fenced code block under n in source order.
func (n *Node) CodeBlocks() []*Code {
	var result []*Code
	for _, c := range Find(n, NodeCodeBlock) {
		result = append(result, c.Code)
	}
	return result
}
