/*
Copyright 2021 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	"context"
	"fmt"
)

const (
	// KeyMethod is the reserved key naming the sweep method
	KeyMethod = "method"
	// KeyName is the reserved key naming the sweep
	KeyName = "name"
	// KeyMetric is the reserved key describing the target metric
	KeyMetric = "metric"
)

// IsReserved checks if a sweep description key holds metadata instead of a parameter space.
func IsReserved(key string) bool {
	switch key {
	case KeyMethod, KeyName, KeyMetric:
		return true
	default:
		return false
	}
}

// Node is an element of a sweep description tree. Implementations are Leaf, Section and Reserved.
type Node interface {
	// NodeName returns the key of the node within its parent section
	NodeName() string
	node()
}

// Leaf is a single sampled hyperparameter.
type Leaf struct {
	// Name is the key of the parameter within its section
	Name string
	// Space is the parameter space values are drawn from
	Space Space
}

// Section groups nodes, e.g. the "train" or "env" sections of a run configuration.
type Section struct {
	// Name is the key of the section within its parent, empty for the root
	Name string
	// Children are the nodes of the section, ordered by name
	Children []Node
}

// Reserved is sweep metadata (method, name or metric) that is never sampled.
type Reserved struct {
	// Name is the reserved key
	Name string
	// Value is the decoded metadata value
	Value interface{}
}

func (in *Leaf) NodeName() string     { return in.Name }
func (in *Section) NodeName() string  { return in.Name }
func (in *Reserved) NodeName() string { return in.Name }

func (*Leaf) node()     {}
func (*Section) node()  {}
func (*Reserved) node() {}

// Tree is a parsed sweep description.
type Tree struct {
	// Root is the top level section
	Root *Section
	// Method is the optional sweep method metadata
	Method string
	// Name is the optional sweep name metadata
	Name string
	// Metric is the target metric, nil if the description does not include one
	Metric *Metric
}

// Parameter is a leaf of a sweep description addressed by its qualified name.
type Parameter struct {
	// Name is the qualified name of the parameter
	Name string
	// Path is the section path of the parameter, including the parameter key
	Path []string
	// Space is the parameter space
	Space Space
}

// ParseTree builds a tree from a decoded sweep description. A mapping is a section when any of
// its values is itself a mapping, otherwise it is a parameter space. Every node kind is decided
// here so later traversals never need to inspect key names.
func ParseTree(desc map[string]interface{}) (*Tree, error) {
	root, err := parseSection("", nil, desc)
	if err != nil {
		return nil, err
	}

	t := &Tree{Root: root}
	for _, n := range root.Children {
		r, ok := n.(*Reserved)
		if !ok {
			continue
		}
		switch r.Name {
		case KeyMethod:
			t.Method = fmt.Sprint(r.Value)
		case KeyName:
			t.Name = fmt.Sprint(r.Value)
		case KeyMetric:
			if t.Metric, err = parseMetric(r.Value); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func parseSection(name string, path []string, desc map[string]interface{}) (*Section, error) {
	s := &Section{Name: name}
	for _, k := range sortedKeys(desc) {
		v := desc[k]
		if IsReserved(k) {
			s.Children = append(s.Children, &Reserved{Name: k, Value: v})
			continue
		}

		p := append(append(make([]string, 0, len(path)+1), path...), k)
		m, ok := asMap(v)
		if !ok {
			return nil, malformed(JoinName(p...), "expected a mapping, got %T", v)
		}

		if isSection(m) {
			child, err := parseSection(k, p, m)
			if err != nil {
				return nil, err
			}
			s.Children = append(s.Children, child)
			continue
		}

		space, err := ParseSpace(JoinName(p...), m)
		if err != nil {
			return nil, err
		}
		s.Children = append(s.Children, &Leaf{Name: k, Space: space})
	}
	return s, nil
}

func isSection(m map[string]interface{}) bool {
	for _, v := range m {
		if _, ok := asMap(v); ok {
			return true
		}
	}
	return false
}

// Flatten returns every leaf of the tree with its qualified name, in a stable (sorted) order.
func (in *Tree) Flatten() []Parameter {
	c := &collector{}
	Walk(context.Background(), c, in.Root)
	return c.params
}

// Sections returns the names of the top level sections that contain parameters.
func (in *Tree) Sections() []string {
	var names []string
	for _, n := range in.Root.Children {
		if _, ok := n.(*Section); ok {
			names = append(names, n.NodeName())
		}
	}
	return names
}

// Lookup returns the parameter with the supplied qualified name.
func (in *Tree) Lookup(name string) (*Parameter, bool) {
	for _, p := range in.Flatten() {
		if p.Name == name {
			return &p, true
		}
	}
	return nil, false
}

type collector struct {
	params []Parameter
}

func (c *collector) Visit(ctx context.Context, n Node) Visitor {
	if l, ok := n.(*Leaf); ok {
		path := WalkPath(ctx)
		c.params = append(c.params, Parameter{Name: JoinName(path...), Path: path, Space: l.Space})
	}
	return c
}
