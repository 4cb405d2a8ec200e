package extract

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is one extractor specification: either a single expression (leaf) or
// an ordered pipeline of sub-nodes. In YAML, a scalar is a one-step pipeline
// and a list is a pipeline whose steps are its elements, recursively. Nesting
// depth does not change semantics for single-pipeline fields:
//
//	value: data.count
//	value: [data.count]
//	value: [[data.count]]
//
// are all the same one-step pipeline.
type Node struct {
	Expr  string
	Steps []Node
}

// IsLeaf reports whether the node is a single expression.
func (n *Node) IsLeaf() bool {
	return n.Steps == nil
}

func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var expr string
		if err := value.Decode(&expr); err != nil {
			return err
		}
		n.Expr = expr
		return nil
	case yaml.SequenceNode:
		steps := make([]Node, len(value.Content))
		for i, item := range value.Content {
			if err := steps[i].UnmarshalYAML(item); err != nil {
				return err
			}
		}
		n.Steps = steps
		return nil
	default:
		return fmt.Errorf("extractor must be a string or a list, got %s node at line %d", kindName(value.Kind), value.Line)
	}
}

// MarshalYAML renders the node back in its config form, so debug dumps of
// the effective configuration stay readable.
func (n Node) MarshalYAML() (interface{}, error) {
	if n.IsLeaf() {
		return n.Expr, nil
	}
	return n.Steps, nil
}

// NodeList is the labels-field form: a list of sibling pipelines, each
// evaluated independently against the same input. A bare scalar is a single
// sibling.
type NodeList []Node

func (l *NodeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var n Node
		if err := n.UnmarshalYAML(value); err != nil {
			return err
		}
		*l = NodeList{n}
		return nil
	case yaml.SequenceNode:
		siblings := make(NodeList, len(value.Content))
		for i, item := range value.Content {
			if err := siblings[i].UnmarshalYAML(item); err != nil {
				return err
			}
		}
		*l = siblings
		return nil
	default:
		return fmt.Errorf("labels extractor must be a string or a list, got %s node at line %d", kindName(value.Kind), value.Line)
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
