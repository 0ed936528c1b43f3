package transform

import (
	"fmt"
	"go/ast"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Analyze loads the Go package rooted at dir and returns every
// EntityMarker-tagged type together with its deterministically ordinalled
// qualifying methods. Ordinals are assigned by sorting qualifying method
// names lexically, which is what makes the assignment stable across
// incremental rebuilds: adding a method never renumbers an earlier one
// unless its name sorts before it.
func Analyze(dir string) (*Package, error) {
	cfg := &packages.Config{Mode: loadMode, Dir: dir}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, fmt.Errorf("transform: load %s: %w", dir, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("transform: no package found in %s", dir)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("transform: %s: %v", dir, pkg.Errors[0])
	}

	entityNames := map[string]bool{}
	for _, f := range pkg.Syntax {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range gd.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := docOf(gd, ts)
				if hasMarker(doc, EntityMarker) {
					entityNames[ts.Name.Name] = true
				}
			}
		}
	}

	// candidate is every exported method on an entity type, whether or not
	// it carries an explicit marker; explicitByType records whether a type
	// had at least one explicitly-marked method anywhere in its declared
	// methods, which decides how that type's candidates are filtered below.
	type candidate struct {
		method   Method
		explicit bool
	}
	candidatesByType := map[string][]candidate{}
	explicitByType := map[string]bool{}
	receiverByType := map[string]string{}

	for _, f := range pkg.Syntax {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) != 1 {
				continue
			}
			typeName := receiverTypeName(fd.Recv.List[0].Type)
			if !entityNames[typeName] {
				continue
			}
			if !fd.Name.IsExported() {
				continue
			}

			if len(fd.Recv.List[0].Names) > 0 {
				receiverByType[typeName] = fd.Recv.List[0].Names[0].Name
			}

			doc := fd.Doc.Text()
			blocking := hasMarker(doc, BlockingMarker)
			event := hasMarker(doc, EventMarker)
			if blocking || event {
				explicitByType[typeName] = true
			}

			sig, _ := pkg.TypesInfo.Defs[fd.Name].(*types.Func)
			m := Method{Name: fd.Name.Name, Blocking: blocking}
			var results string
			if sig != nil {
				fsig := sig.Type().(*types.Signature)
				m.Params, m.ResultType = signatureOf(fsig, pkg.Types)
				if res := fsig.Results(); res.Len() == 1 {
					results = types.TypeString(res.At(0).Type(), types.RelativeTo(pkg.Types))
				} else if res.Len() > 1 {
					results = types.TypeString(res, types.RelativeTo(pkg.Types))
				}
			}
			m.Signature = fmt.Sprintf("%s.%s(%s) %s", typeName, m.Name, paramTypeList(m.Params), orVoid(results))
			candidatesByType[typeName] = append(candidatesByType[typeName], candidate{method: m, explicit: blocking || event})
		}
	}

	var entities []Entity
	for name := range entityNames {
		explicitMode := explicitByType[name]
		var methods []Method
		for _, c := range candidatesByType[name] {
			// Explicit mode (the type has at least one primemover:event or
			// primemover:blocking marker): only marked methods qualify,
			// same as before. Default mode (no method on the type carries
			// either marker): every exported method is implicitly a
			// non-blocking event method, per the "default event set" rule.
			if explicitMode && !c.explicit {
				continue
			}
			methods = append(methods, c.method)
		}
		sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
		for i := range methods {
			methods[i].Ordinal = i
		}
		recv := receiverByType[name]
		if recv == "" {
			recv = strings.ToLower(name[:1])
		}
		entities = append(entities, Entity{Name: name, Receiver: recv, Methods: methods})
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })

	return &Package{Name: pkg.Name, Dir: dir, Entities: entities}, nil
}

func docOf(gd *ast.GenDecl, ts *ast.TypeSpec) string {
	if ts.Doc != nil {
		return ts.Doc.Text()
	}
	if gd.Doc != nil {
		return gd.Doc.Text()
	}
	return ""
}

func hasMarker(doc, marker string) bool {
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) == marker {
			return true
		}
	}
	return false
}

func receiverTypeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func signatureOf(sig *types.Signature, pkg *types.Package) (params []Param, result string) {
	qualifier := types.RelativeTo(pkg)
	tuple := sig.Params()
	for i := 0; i < tuple.Len(); i++ {
		v := tuple.At(i)
		name := v.Name()
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		params = append(params, Param{Name: name, Type: types.TypeString(v.Type(), qualifier)})
	}
	results := sig.Results()
	// By convention, event methods return (T) or (T, error) or (error) or
	// nothing; the trailing error (if any) is the dispatch failure, not
	// part of the scheduled return value.
	n := results.Len()
	if n > 0 && isErrorType(results.At(n-1).Type()) {
		n--
	}
	if n > 0 {
		result = types.TypeString(results.At(0).Type(), qualifier)
	}
	return params, result
}

func isErrorType(t types.Type) bool {
	n, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := n.Obj()
	return obj != nil && obj.Pkg() == nil && obj.Name() == "error"
}

func paramTypeList(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Type
	}
	return strings.Join(parts, ", ")
}

func orVoid(t string) string {
	if t == "" {
		return "void"
	}
	return t
}
