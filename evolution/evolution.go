// Package evolution lets an agent inspect, patch and test its own source tree.
//
// Analysis is static: Go files are parsed with go/parser and reported for
// overly long functions and TODO/FIXME markers. Writes are confined to the
// module's base directory.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/sovereign/logging"
	"github.com/hupe1980/sovereign/tool/shell"
)

const (
	// LongFunctionThreshold is the line count above which a function is reported.
	LongFunctionThreshold = 60
	// DefaultTestCommand runs the module's test suite.
	DefaultTestCommand = "go test ./..."
	// DefaultTestTimeout bounds RunSelfTest.
	DefaultTestTimeout = 5 * time.Minute
	// OperationalMessage is reported by a passing self-test.
	OperationalMessage = "All systems operational."
)

// Finding kinds.
const (
	KindLongFunction = "long_function"
	KindMarker       = "marker"
)

var (
	// ErrOutsideBaseDir is returned for paths escaping the base directory.
	ErrOutsideBaseDir = errors.New("path outside base directory")
	// ErrSelfTestFailed is returned when the test command exits non-zero.
	ErrSelfTestFailed = errors.New("self-test failed")
)

// Executor runs a shell command. *shell.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, command string, timeout time.Duration) (*shell.ExecResult, error)
}

// Finding is a single potential optimization.
type Finding struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Detail)
}

// Report is the analysis of one file.
type Report struct {
	File     string    `json:"file"`
	Findings []Finding `json:"findings"`
}

// Summary renders the one-line result of a file analysis.
func (r Report) Summary() string {
	return fmt.Sprintf("Analysis of %s complete. Found %d potential optimizations.", r.File, len(r.Findings))
}

// Options configure a Module.
type Options struct {
	TestCommand string
	TestTimeout time.Duration
	// Executor runs the test command. Defaults to a shell.Runner in the base dir.
	Executor Executor
	// MaxListed caps the findings listed by AnalyzeCodebase.
	MaxListed int
	Logger    logging.Logger
}

// Module analyzes and modifies the tree rooted at its base directory.
type Module struct {
	baseDir string
	opts    Options
}

// New creates a Module rooted at baseDir.
func New(baseDir string, optFns ...func(o *Options)) (*Module, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	opts := Options{
		TestCommand: DefaultTestCommand,
		TestTimeout: DefaultTestTimeout,
		MaxListed:   20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Executor == nil {
		r := shell.NewRunner()
		r.Dir = abs
		opts.Executor = r
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Module{baseDir: abs, opts: opts}, nil
}

// BaseDir returns the absolute base directory.
func (m *Module) BaseDir() string { return m.baseDir }

// resolve maps path into the base directory.
func (m *Module) resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(m.baseDir, path)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(m.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBaseDir, path)
	}
	return full, nil
}

// AnalyzeFile reports potential optimizations in one file.
func (m *Module) AnalyzeFile(path string) (Report, error) {
	full, err := m.resolve(path)
	if err != nil {
		return Report{}, err
	}
	src, err := os.ReadFile(full)
	if err != nil {
		return Report{}, fmt.Errorf("analyze %s: %w", path, err)
	}
	rel, _ := filepath.Rel(m.baseDir, full)
	rel = filepath.ToSlash(rel)

	if filepath.Ext(full) != ".go" {
		return Report{File: rel, Findings: scanMarkers(rel, string(src))}, nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, full, src, parser.ParseComments)
	if err != nil {
		return Report{}, fmt.Errorf("analyze %s: %w", path, err)
	}
	return Report{File: rel, Findings: inspectGo(rel, fset, file)}, nil
}

func inspectGo(name string, fset *token.FileSet, file *ast.File) []Finding {
	var findings []Finding
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		start := fset.Position(fn.Pos()).Line
		lines := fset.Position(fn.End()).Line - start + 1
		if lines > LongFunctionThreshold {
			findings = append(findings, Finding{
				File:   name,
				Line:   start,
				Kind:   KindLongFunction,
				Detail: fmt.Sprintf("function %s spans %d lines", funcName(fn), lines),
			})
		}
	}
	for _, group := range file.Comments {
		for _, c := range group.List {
			if marker := markerIn(c.Text); marker != "" {
				findings = append(findings, Finding{
					File:   name,
					Line:   fset.Position(c.Pos()).Line,
					Kind:   KindMarker,
					Detail: marker + " comment",
				})
			}
		}
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings
}

func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	recv := fn.Recv.List[0].Type
	if star, ok := recv.(*ast.StarExpr); ok {
		recv = star.X
	}
	if idx, ok := recv.(*ast.IndexExpr); ok {
		recv = idx.X
	}
	if id, ok := recv.(*ast.Ident); ok {
		return id.Name + "." + fn.Name.Name
	}
	return fn.Name.Name
}

func scanMarkers(name, src string) []Finding {
	var findings []Finding
	for i, line := range strings.Split(src, "\n") {
		if marker := markerIn(line); marker != "" {
			findings = append(findings, Finding{File: name, Line: i + 1, Kind: KindMarker, Detail: marker + " comment"})
		}
	}
	return findings
}

func markerIn(s string) string {
	for _, m := range []string{"TODO", "FIXME"} {
		if strings.Contains(s, m) {
			return m
		}
	}
	return ""
}

// AnalyzeCodebase analyzes every Go file below the base directory, skipping
// vendor, testdata, hidden and underscore directories.
func (m *Module) AnalyzeCodebase(ctx context.Context) (string, error) {
	var (
		files    int
		findings []Finding
	)
	err := filepath.WalkDir(m.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != m.baseDir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		report, err := m.AnalyzeFile(path)
		if err != nil {
			m.opts.Logger.Warn("evolution.analyze.skip", "file", path, "error", err.Error())
			return nil
		}
		files++
		findings = append(findings, report.Findings...)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("analyze codebase: %w", err)
	}

	m.opts.Logger.Info("evolution.analyze.done", "files", files, "findings", len(findings))

	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of %d files complete. Found %d potential optimizations.", files, len(findings))
	for i, f := range findings {
		if i == m.opts.MaxListed {
			fmt.Fprintf(&b, "\n... and %d more", len(findings)-i)
			break
		}
		b.WriteString("\n- ")
		b.WriteString(f.String())
	}
	return b.String(), nil
}

func skipDir(name string) bool {
	return name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// ApplyImprovement overwrites path (relative to the base directory) with content.
func (m *Module) ApplyImprovement(path, content string) error {
	full, err := m.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("apply improvement to %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		return fmt.Errorf("apply improvement to %s: %w", path, err)
	}
	m.opts.Logger.Info("evolution.apply", "file", path, "bytes", len(content))
	return nil
}

// RunSelfTest runs the test command. A non-zero exit returns the command
// output together with ErrSelfTestFailed.
func (m *Module) RunSelfTest(ctx context.Context) (string, error) {
	res, err := m.opts.Executor.Run(ctx, m.opts.TestCommand, m.opts.TestTimeout)
	if err != nil {
		return "", fmt.Errorf("run self-test: %w", err)
	}
	if res.TimedOut {
		return shell.FormatOutput(res), fmt.Errorf("%w: timed out after %s", ErrSelfTestFailed, m.opts.TestTimeout)
	}
	if res.ExitCode != 0 {
		m.opts.Logger.Warn("evolution.selftest.failed", "exit_code", res.ExitCode)
		return shell.FormatOutput(res), fmt.Errorf("%w: exit code %d", ErrSelfTestFailed, res.ExitCode)
	}
	m.opts.Logger.Info("evolution.selftest.passed", "duration_ms", res.DurationMs)
	return OperationalMessage, nil
}
