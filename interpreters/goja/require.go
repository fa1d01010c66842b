/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package goja

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// InlineRequires replaces top-level require("name") statements in
// driver code with the source of the named libraries.
//
// Code that doesn't parse (for example, a function body with a
// top-level return) is returned unchanged.  Goja can't combine
// Programs, so inlining source is the way to precompile an
// expression together with its libraries.
func InlineRequires(ctx context.Context, src string, provider func(context.Context, string) (string, error)) (string, error) {
	if !strings.Contains(src, "require") {
		return src, nil
	}

	p, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return src, nil
	}

	var (
		acc  strings.Builder
		from = 0
	)

	for _, s := range p.Body {
		stmt, is := s.(*ast.ExpressionStatement)
		if !is {
			continue
		}
		call, is := stmt.Expression.(*ast.CallExpression)
		if !is {
			continue
		}
		id, is := call.Callee.(*ast.Identifier)
		if !is || id.Name != "require" {
			continue
		}
		if len(call.ArgumentList) != 1 {
			return "", fmt.Errorf("bad require args: %#v", call.ArgumentList)
		}
		lit, is := call.ArgumentList[0].(*ast.StringLiteral)
		if !is {
			return "", fmt.Errorf("bad require arg: %#v", call.ArgumentList[0])
		}

		lib, err := provider(ctx, string(lit.Value))
		if err != nil {
			return "", err
		}

		// Idx values are one-based.
		start, end := int(stmt.Idx0())-1, int(stmt.Idx1())-1
		if end > len(src) {
			end = len(src)
		}
		if end < len(src) && src[end] == ';' {
			end++
		}

		acc.WriteString(src[from:start])
		acc.WriteString(lib)
		acc.WriteString("\n")
		from = end
	}

	acc.WriteString(src[from:])

	return acc.String(), nil
}
