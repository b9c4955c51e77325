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

// Visitor is used to inspect individual nodes of a sweep description.
type Visitor interface {
	// Visit a node of the tree. The return value is used to halt traversal.
	Visit(ctx context.Context, n Node) Visitor
}

// Walk traverses a sweep description depth first; n must not be nil; visitor will be invoked
// with each node followed by an invocation with nil. The path of the current node is available
// from the context using WalkPath.
func Walk(ctx context.Context, v Visitor, n Node) {
	if v = v.Visit(ctx, n); v == nil {
		return
	}

	switch n := n.(type) {

	case *Section:
		for _, c := range n.Children {
			Walk(withPath(ctx, c.NodeName()), v, c)
		}

	case *Leaf, *Reserved:
		// Do nothing

	default:
		panic(fmt.Sprintf("v1alpha1.Walk: unexpected type %T", n))
	}

	v.Visit(ctx, nil)
}

// pathKey is used as a context key for the walk path.
type pathKey struct{}

// WalkPath returns the path to current node on the context as an array of keys.
func WalkPath(ctx context.Context) []string {
	if v, ok := ctx.Value(pathKey{}).([]string); ok {
		return v
	}
	return nil
}

// withPath adds the specified key to the path while walking.
func withPath(ctx context.Context, key string) context.Context {
	parent := WalkPath(ctx)
	path := make([]string, 0, len(parent)+1)
	path = append(path, parent...)
	path = append(path, key)
	return context.WithValue(ctx, pathKey{}, path)
}
