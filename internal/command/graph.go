// Package command encodes the "Declare Commands" graph sent once at the start
// of Play, per spec §6: a directed graph serialized in reverse-dependency
// order, one node per literal/argument/root, terminated by the VarUInt index
// of the root node.
package command

import (
	"io"

	"github.com/opencraft/voxelcore/internal/proto"
)

// Kind is a node's position in the grammar: root, literal, or argument.
type Kind uint8

const (
	KindRoot Kind = iota
	KindLiteral
	KindArgument
)

// flag bits, per §6 "Flags bits: 0..1 node kind, 2 executable, 3 has redirect,
// 4 has suggestion type (argument nodes only)".
const (
	flagKindMask     = 0x03
	flagExecutable   = 0x04
	flagHasRedirect  = 0x08
	flagHasSuggestion = 0x10
)

// Node is one vertex of the command graph.
type Node struct {
	Kind       Kind
	Name       string // literal/argument name; empty for root
	Executable bool
	Children   []int // indices into the owning Graph's Nodes slice
	Redirect   int   // valid only if RedirectTo is true
	RedirectTo bool
	Parser     string // parser identifier, argument nodes only
	ParserData []byte // raw parser properties, argument nodes only
	Suggestion string // suggestion type identifier; empty if none
}

// Graph is the full command tree as sent in DeclareCommands.
type Graph struct {
	Nodes []Node
	Root  int
}

// NewGraph creates an empty graph with a root node at index 0.
func NewGraph() *Graph {
	return &Graph{Nodes: []Node{{Kind: KindRoot}}, Root: 0}
}

// AddLiteral appends a literal child of parent and returns its index.
func (g *Graph) AddLiteral(parent int, name string, executable bool) int {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{Kind: KindLiteral, Name: name, Executable: executable})
	g.Nodes[parent].Children = append(g.Nodes[parent].Children, idx)
	return idx
}

// AddArgument appends an argument child of parent with the given brigadier
// parser identifier and raw parser-properties payload, and returns its index.
func (g *Graph) AddArgument(parent int, name, parser string, parserData []byte, executable bool) int {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{
		Kind: KindArgument, Name: name, Parser: parser, ParserData: parserData, Executable: executable,
	})
	g.Nodes[parent].Children = append(g.Nodes[parent].Children, idx)
	return idx
}

// Encode writes the full DeclareCommands payload: VarUInt node count, each
// node in index order, then the VarUInt root index.
func (g *Graph) Encode(w io.Writer) error {
	if _, err := proto.VarUInt(len(g.Nodes)).WriteTo(w); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		if err := n.encode(w); err != nil {
			return err
		}
	}
	_, err := proto.VarUInt(g.Root).WriteTo(w)
	return err
}

func (n Node) encode(w io.Writer) error {
	flags := byte(n.Kind) & flagKindMask
	if n.Executable {
		flags |= flagExecutable
	}
	if n.RedirectTo {
		flags |= flagHasRedirect
	}
	if n.Kind == KindArgument && n.Suggestion != "" {
		flags |= flagHasSuggestion
	}

	if _, err := proto.UnsignedByte(flags).WriteTo(w); err != nil {
		return err
	}
	if _, err := proto.VarUInt(len(n.Children)).WriteTo(w); err != nil {
		return err
	}
	for _, c := range n.Children {
		if _, err := proto.VarUInt(c).WriteTo(w); err != nil {
			return err
		}
	}
	if n.RedirectTo {
		if _, err := proto.VarUInt(n.Redirect).WriteTo(w); err != nil {
			return err
		}
	}
	if n.Kind == KindLiteral || n.Kind == KindArgument {
		if _, err := proto.String(n.Name).WriteTo(w); err != nil {
			return err
		}
	}
	if n.Kind == KindArgument {
		if _, err := proto.String(n.Parser).WriteTo(w); err != nil {
			return err
		}
		if len(n.ParserData) > 0 {
			if _, err := w.Write(n.ParserData); err != nil {
				return err
			}
		}
		if n.Suggestion != "" {
			if _, err := proto.String(n.Suggestion).WriteTo(w); err != nil {
				return err
			}
		}
	}
	return nil
}
