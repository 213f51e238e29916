package db

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/pkg/errs"
)

//go:embed sql/*.sql
var schemaFS embed.FS

var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidNamespace reports whether a namespace is usable as a table name.
func ValidNamespace(ns string) bool {
	return identifierRe.MatchString(ns)
}

type schemaParams struct {
	Namespace  string
	VectorSize int
}

// Schema provisions the per-namespace vector tables. Statements run through
// the retrying executor, so re-provisioning an existing namespace is a no-op.
type Schema struct {
	exec       *Executor
	vectorSize int
}

func NewSchema(exec *Executor, vectorSize int) *Schema {
	return &Schema{exec: exec, vectorSize: vectorSize}
}

// EnsureNamespace creates the extension, table, index and match function for
// a namespace. The namespace is interpolated as an identifier and must match
// [a-z][a-z0-9_]*.
func (s *Schema) EnsureNamespace(ctx context.Context, namespace string) error {
	if !ValidNamespace(namespace) {
		return fmt.Errorf("%w: %q", errs.ErrBadNamespace, namespace)
	}
	statements, err := renderSchema(schemaParams{Namespace: namespace, VectorSize: s.vectorSize})
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if err := s.exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("provision namespace %s: %w", namespace, err)
		}
	}
	logutil.GetLogger(ctx).Info("namespace schema ensured", zap.String("namespace", namespace))
	return nil
}

func renderSchema(params schemaParams) ([]string, error) {
	entries, err := fs.ReadDir(schemaFS, "sql")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var statements []string
	for _, name := range names {
		raw, err := fs.ReadFile(schemaFS, "sql/"+name)
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(name).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, params); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		statements = append(statements, strings.TrimSpace(buf.String()))
	}
	return statements, nil
}
