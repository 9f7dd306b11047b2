package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/ontograph/internal/config"
	"github.com/specialistvlad/ontograph/internal/ctxlog"
	"github.com/specialistvlad/ontograph/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Environ feeds the env variable of the evaluation context. Nil means
	// os.Environ.
	Environ func() []string
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is a struct used to decode every supported setting from any file.
// Pointers tell an omitted attribute from a zero value.
type fileRoot struct {
	Workers     *int           `hcl:"workers,optional"`
	ImportDepth *int           `hcl:"import_depth,optional"`
	Timeout     *string        `hcl:"timeout,optional"`
	BasePath    *string        `hcl:"base_path,optional"`
	Search      []string       `hcl:"search,optional"`
	Log         *logBlock      `hcl:"log,block"`
	Metrics     *metricsBlock  `hcl:"metrics,block"`
	Imports     []*importBlock `hcl:"import,block"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type metricsBlock struct {
	Listen string `hcl:"listen"`
}

type importBlock struct {
	Reference string `hcl:"reference,label"`
	Location  string `hcl:"location"`
}

// Load parses every .hcl file found under paths, in order, and merges them
// into a model that starts from the defaults. Relative paths inside a file
// are resolved against the directory of that file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.New()

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	evalCtx := l.evalContext()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := merge(model, &root, filepath.Dir(file)); err != nil {
			return nil, fmt.Errorf("invalid configuration in %s: %w", file, err)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "files", len(hclFiles), "imports", len(model.Imports), "search", len(model.Search))
	return model, nil
}

// merge copies the attributes set in root over model.
func merge(model *config.Model, root *fileRoot, dir string) error {
	if root.Workers != nil {
		model.Workers = *root.Workers
	}
	if root.ImportDepth != nil {
		model.ImportDepth = *root.ImportDepth
	}
	if root.Timeout != nil {
		d, err := time.ParseDuration(*root.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		model.Timeout = d
	}
	if root.BasePath != nil {
		model.BasePath = anchor(dir, *root.BasePath)
	}
	for _, pattern := range root.Search {
		model.Search = append(model.Search, anchor(dir, pattern))
	}
	if root.Log != nil {
		if root.Log.Level != nil {
			model.Log.Level = *root.Log.Level
		}
		if root.Log.Format != nil {
			model.Log.Format = *root.Log.Format
		}
	}
	if root.Metrics != nil {
		model.Metrics.Listen = root.Metrics.Listen
	}
	for _, imp := range root.Imports {
		location := imp.Location
		if !isURL(location) {
			location = anchor(dir, location)
		}
		model.Imports[imp.Reference] = location
	}
	return nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found. It's not an error if a configured path doesn't exist.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		for _, f := range files {
			if _, wasSeen := seen[f]; !wasSeen {
				allFiles = append(allFiles, f)
				seen[f] = struct{}{}
			}
		}
	}
	return allFiles, nil
}

// evalContext exposes the process environment as the env object.
func (l *Loader) evalContext() *hcl.EvalContext {
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}
	return &hcl.EvalContext{Variables: environment(environ())}
}
