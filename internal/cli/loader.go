package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/slotreason/internal/compiler"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/funcs"
)

// LoadResult contains a compiled rule set and where it came from.
type LoadResult struct {
	Program   *factstore.Program
	Dirs      []string
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during rule loading.
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

// LoadRules checks that every directory holds CUE files and compiles them
// into one program, merged in order.
func LoadRules(dirs []string) (*LoadResult, error) {
	result := &LoadResult{Dirs: dirs}
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}
		}
		if !info.IsDir() {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
		}

		cueFiles, err := FindCUEFiles(dir)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
		}
		result.FileCount += len(cueFiles)
	}

	program, err := compiler.LoadProgram(dirs...)
	if err != nil {
		return nil, convertCompileError(err)
	}
	result.Program = program
	return result, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// are separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// ResolveFunctions returns the resolver over the named namespaces of the
// default catalog, or nil when names is empty.
func ResolveFunctions(names []string) (funcs.Resolver, error) {
	if len(names) == 0 {
		return nil, nil
	}
	resolver, err := funcs.NewCatalog().Resolver(names...)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeFunctions, Message: err.Error()}
	}
	return resolver, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadInput    = "E008" // Slot or fact input unreadable
	ErrCodeFunctions   = "E009" // Unknown function namespace

	// Rule set errors
	ErrCodeTemplate    = "E101" // Invalid template
	ErrCodeInvalidWhen = "E110" // Invalid when clause
	ErrCodeInvalidThen = "E113" // Invalid then clause
	ErrCodeRule        = "E114" // Invalid rule
	ErrCodeFacts       = "E115" // Invalid initial fact
	ErrCodeProgram     = "E116" // Inconsistent rule set
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "program":
		return ErrCodeProgram
	case strings.HasPrefix(field, "template"):
		return ErrCodeTemplate
	case strings.HasPrefix(field, "facts"):
		return ErrCodeFacts
	case strings.HasPrefix(field, "rule") && strings.Contains(field, ".when"):
		return ErrCodeInvalidWhen
	case strings.HasPrefix(field, "rule") && strings.Contains(field, ".then"):
		return ErrCodeInvalidThen
	case strings.HasPrefix(field, "rule"):
		return ErrCodeRule
	default:
		return ErrCodeGeneric
	}
}
