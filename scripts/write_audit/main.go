// Command write_audit reports service methods that write through repos
// directly instead of committing a graph through the aggregate.
//
//	go run ./scripts/write_audit [-strict] [repo-root]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type methodStats struct {
	StructName        string   `json:"struct_name"`
	Method            string   `json:"method"`
	File              string   `json:"file"`
	Line              int      `json:"line"`
	RepoWriteCalls    int      `json:"repo_write_calls"`
	RepoFieldsWritten []string `json:"repo_fields_written,omitempty"`
	GraphCommits      int      `json:"graph_commits"`
}

type auditReport struct {
	RepoWriteCallsites   int           `json:"repo_write_callsites"`
	GraphCommitMethods   int           `json:"graph_commit_methods"`
	ResidualMethods      []methodStats `json:"residual_methods"`
	CommitMethods        []methodStats `json:"commit_methods"`
	StructsWithRepos     []string      `json:"structs_with_repos"`
	StructsWithCommitter []string      `json:"structs_with_committer"`
}

type structFields struct {
	RepoFields map[string]string
	Committer  bool
	GraphField string
}

var repoWriteMethods = map[string]bool{
	"Create":  true,
	"Insert":  true,
	"Update":  true,
	"Save":    true,
	"Upsert":  true,
	"Delete":  true,
	"Updates": true,
}

func main() {
	strict := flag.Bool("strict", false, "exit non-zero when a service writes through a repo")
	flag.Parse()
	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	report, err := audit(root, filepath.Join(root, "internal", "services"))
	if err != nil {
		exitf("%v", err)
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitf("marshal report: %v", err)
	}
	fmt.Println(string(out))
	if *strict && report.RepoWriteCallsites > 0 {
		os.Exit(2)
	}
}

func audit(root, servicesDir string) (auditReport, error) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, servicesDir, func(fi os.FileInfo) bool {
		name := fi.Name()
		return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	}, 0)
	if err != nil {
		return auditReport{}, fmt.Errorf("parse dir: %w", err)
	}
	pkg, ok := pkgs["services"]
	if !ok {
		return auditReport{}, fmt.Errorf("services package not found in %s", servicesDir)
	}

	fieldsByStruct := map[string]structFields{}
	for _, f := range pkg.Files {
		collectStructFields(f, fieldsByStruct)
	}

	var methods []methodStats
	for filePath, f := range pkg.Files {
		rel, err := filepath.Rel(root, filePath)
		if err != nil {
			rel = filePath
		}
		collectMethodStats(fset, f, rel, fieldsByStruct, &methods)
	}
	return buildReport(fieldsByStruct, methods), nil
}

func collectStructFields(file *ast.File, out map[string]structFields) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || st.Fields == nil {
				continue
			}
			sf := structFields{RepoFields: map[string]string{}}
			for _, field := range st.Fields.List {
				if len(field.Names) == 0 {
					if id, ok := field.Type.(*ast.Ident); ok && id.Name == "graphCommitter" {
						sf.Committer = true
					}
					continue
				}
				sel, ok := field.Type.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				pkgIdent, ok := sel.X.(*ast.Ident)
				if !ok {
					continue
				}
				fieldName := field.Names[0].Name
				switch typeName := sel.Sel.Name; {
				case pkgIdent.Name == "repos" && (strings.HasSuffix(typeName, "Repo") || typeName == "EntityStore"):
					sf.RepoFields[fieldName] = typeName
				case pkgIdent.Name == "domainagg" && strings.HasSuffix(typeName, "Aggregate"):
					sf.GraphField = fieldName
				}
			}
			if len(sf.RepoFields) > 0 || sf.Committer || sf.GraphField != "" {
				out[ts.Name.Name] = sf
			}
		}
	}
}

func collectMethodStats(
	fset *token.FileSet,
	file *ast.File,
	relFile string,
	fieldsByStruct map[string]structFields,
	out *[]methodStats,
) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || fd.Body == nil || len(fd.Recv.List) == 0 {
			continue
		}
		recvName, recvType := recvInfo(fd.Recv.List[0])
		if recvType == "" || recvName == "" {
			continue
		}
		sf, ok := fieldsByStruct[recvType]
		if !ok {
			continue
		}

		writes := 0
		written := map[string]bool{}
		commits := 0

		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			fnSel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			method := fnSel.Sel.Name
			// s.commit(...)
			if base, ok := fnSel.X.(*ast.Ident); ok && base.Name == recvName {
				if sf.Committer && method == "commit" {
					commits++
				}
				return true
			}
			// s.<field>.<method>(...)
			rcvSel, ok := fnSel.X.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			base, ok := rcvSel.X.(*ast.Ident)
			if !ok || base.Name != recvName {
				return true
			}
			field := rcvSel.Sel.Name
			if _, ok := sf.RepoFields[field]; ok && repoWriteMethods[method] {
				writes++
				written[field] = true
				return true
			}
			if field == sf.GraphField && method == "SaveGraph" {
				commits++
			}
			return true
		})

		*out = append(*out, methodStats{
			StructName:        recvType,
			Method:            fd.Name.Name,
			File:              filepath.ToSlash(relFile),
			Line:              fset.Position(fd.Pos()).Line,
			RepoWriteCalls:    writes,
			RepoFieldsWritten: sortedKeys(written),
			GraphCommits:      commits,
		})
	}
}

func buildReport(fieldsByStruct map[string]structFields, methods []methodStats) auditReport {
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].File == methods[j].File {
			return methods[i].Line < methods[j].Line
		}
		return methods[i].File < methods[j].File
	})

	var report auditReport
	withRepos := map[string]bool{}
	withCommitter := map[string]bool{}
	for name, sf := range fieldsByStruct {
		if len(sf.RepoFields) > 0 {
			withRepos[name] = true
		}
		if sf.Committer || sf.GraphField != "" {
			withCommitter[name] = true
		}
	}
	for _, m := range methods {
		if m.RepoWriteCalls > 0 {
			report.RepoWriteCallsites += m.RepoWriteCalls
			report.ResidualMethods = append(report.ResidualMethods, m)
		}
		if m.GraphCommits > 0 {
			report.GraphCommitMethods++
			report.CommitMethods = append(report.CommitMethods, m)
		}
	}
	report.StructsWithRepos = sortedKeys(withRepos)
	report.StructsWithCommitter = sortedKeys(withCommitter)
	return report
}

func recvInfo(field *ast.Field) (string, string) {
	if field == nil || len(field.Names) == 0 {
		return "", ""
	}
	recvName := field.Names[0].Name
	switch t := field.Type.(type) {
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return recvName, id.Name
		}
	case *ast.Ident:
		return recvName, t.Name
	}
	return "", ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
