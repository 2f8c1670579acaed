package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/badgify/internal/compiler"
	"github.com/roach88/badgify/internal/recipe"
)

// LoadMode controls how errors are handled during recipe loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the recipes compiled from a directory.
type LoadResult struct {
	Specs     []recipe.Spec
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during recipe loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRecipes compiles every `recipe: <slug>: {...}` entry of the *.cue
// files under dir. Each file is compiled on its own; recipes are returned
// in file order, then declaration order. The specs are not validated.
func LoadRecipes(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("recipes directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing recipes directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	result := &LoadResult{FileCount: len(files)}
	var errs []error

	for _, path := range files {
		fileErrs := loadFile(ctx, path, result)
		errs = append(errs, fileErrs...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return result, errs[:1]
		}
	}

	if len(result.Specs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no recipes found in " + dir})
	}
	return result, errs
}

func loadFile(ctx *cue.Context, path string, result *LoadResult) []error {
	data, err := os.ReadFile(path)
	if err != nil {
		return []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return []error{buildError(err)}
	}

	recipesVal := value.LookupPath(cue.ParsePath("recipe"))
	if !recipesVal.Exists() {
		return nil
	}

	iter, err := recipesVal.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: recipe must be a struct: %v", path, err)}}
	}

	var errs []error
	for iter.Next() {
		spec, err := compiler.CompileRecipe(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "recipe."+iter.Selector().String()))
			continue
		}
		result.Specs = append(result.Specs, *spec)
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// buildError converts a CUE compile error, keeping the first position.
func buildError(err error) *LoadError {
	loadErr := &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	if all := cueerrors.Errors(err); len(all) > 0 {
		loadErr.Message = all[0].Error()
		if pos := cueerrors.Positions(all[0]); len(pos) > 0 {
			loadErr.Pos = pos[0]
		}
	}
	return loadErr
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // File or database could not be opened
	ErrCodeNotFound    = "E005" // Path or badge not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeConfig      = "E007" // Invalid configuration
	ErrCodeRunFailed   = "E008" // Reconciliation run failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "name":
		return compiler.ErrRecipeNameEmpty
	case "manual", "description", "image":
		return compiler.ErrRecipeField
	case "membership", "membership.from", "membership.id", "membership.where",
		"membership.where.field", "membership.where.op", "membership.where.value", "membership.where.in":
		return compiler.ErrRecipeMembership
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
